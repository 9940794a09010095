package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/docstore"
)

// DocumentSummary is a stored document with its note count.
type DocumentSummary struct {
	docstore.Document
	NoteCount int `json:"note_count"`
}

// ListDocumentsOutput contains the result of the ListDocuments operation.
type ListDocumentsOutput struct {
	Items []DocumentSummary `json:"items"`
}

// ListDocuments lists every stored document, sorted by display name.
// database may be nil, in which case note counts are zero.
func ListDocuments(ctx context.Context, store *docstore.Store, database *sql.DB) (*ListDocumentsOutput, error) {
	docs, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var counts map[string]int
	if database != nil {
		counts, err = db.CountNotes(ctx, database)
		if err != nil {
			return nil, err
		}
	}

	items := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		items = append(items, DocumentSummary{Document: d, NoteCount: counts[d.DocID]})
	}

	return &ListDocumentsOutput{Items: items}, nil
}
