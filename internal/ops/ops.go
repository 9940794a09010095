package ops

import (
	"strconv"
	"strings"

	"github.com/hpungsan/annot/internal/errors"
)

// ParseNoteID parses a note id from a path segment or CLI argument.
func ParseNoteID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("note id must be a positive integer")
	}
	return id, nil
}

// ParsePage parses an optional page filter. An empty string means "all pages".
func ParsePage(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return nil, errors.NewInvalidRequest("page must be a positive integer")
	}
	return &page, nil
}

func validateID(id int64) error {
	if id <= 0 {
		return errors.NewInvalidRequest("id must be a positive integer")
	}
	return nil
}

func requireDocID(docID string) (string, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return "", errors.NewInvalidRequest("doc_id is required")
	}
	return docID, nil
}
