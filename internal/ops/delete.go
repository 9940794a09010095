package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/annot/internal/db"
)

// DeleteNoteInput contains parameters for the DeleteNote operation.
type DeleteNoteInput struct {
	ID int64
}

// DeleteNoteOutput contains the result of the DeleteNote operation.
type DeleteNoteOutput struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// DeleteNote permanently removes a note.
func DeleteNote(ctx context.Context, database *sql.DB, input DeleteNoteInput) (*DeleteNoteOutput, error) {
	if err := validateID(input.ID); err != nil {
		return nil, err
	}

	if err := db.DeleteNote(ctx, database, input.ID); err != nil {
		return nil, err
	}

	return &DeleteNoteOutput{
		OK:      true,
		Message: fmt.Sprintf("Note %d deleted successfully", input.ID),
	}, nil
}
