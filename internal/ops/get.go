package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/note"
)

// GetNoteInput contains parameters for the GetNote operation.
type GetNoteInput struct {
	ID int64
}

// GetNote retrieves a single note by id.
func GetNote(ctx context.Context, database *sql.DB, input GetNoteInput) (*note.Note, error) {
	if err := validateID(input.ID); err != nil {
		return nil, err
	}
	return db.GetNote(ctx, database, input.ID)
}
