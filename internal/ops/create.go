package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/note"
)

// CreateNote validates input, applies defaults, and persists a new note.
// Coordinates are stored exactly as given.
func CreateNote(ctx context.Context, database *sql.DB, input note.Input) (*note.Note, error) {
	n, err := input.Resolve()
	if err != nil {
		return nil, err
	}

	if err := db.InsertNote(ctx, database, n); err != nil {
		return nil, err
	}

	return n, nil
}
