package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
)

// ListNotesInput contains parameters for the ListNotes operation.
type ListNotesInput struct {
	DocID string
	Page  *int // nil means all pages
}

// ListNotesOutput contains the result of the ListNotes operation.
type ListNotesOutput struct {
	Items []note.Note `json:"items"`
}

// ListNotes returns a document's notes in creation order, optionally for one page.
func ListNotes(ctx context.Context, database *sql.DB, input ListNotesInput) (*ListNotesOutput, error) {
	docID, err := requireDocID(input.DocID)
	if err != nil {
		return nil, err
	}
	if input.Page != nil && *input.Page < 1 {
		return nil, errors.NewInvalidRequest("page must be a positive integer")
	}

	notes, err := db.ListNotes(ctx, database, docID, input.Page)
	if err != nil {
		return nil, err
	}

	return &ListNotesOutput{Items: notes}, nil
}
