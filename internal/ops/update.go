package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/note"
)

// UpdateNoteInput contains parameters for the UpdateNote operation.
type UpdateNoteInput struct {
	ID   int64
	Note note.Input
}

// UpdateNote fully replaces an existing note. Every field is taken from the
// input (with defaults applied); omitted optional fields are reset, not kept.
// Concurrent updates to the same note are last-write-wins.
func UpdateNote(ctx context.Context, database *sql.DB, input UpdateNoteInput) (*note.Note, error) {
	if err := validateID(input.ID); err != nil {
		return nil, err
	}

	n, err := input.Note.Resolve()
	if err != nil {
		return nil, err
	}
	n.ID = input.ID

	if err := db.ReplaceNote(ctx, database, n); err != nil {
		return nil, err
	}

	return n, nil
}
