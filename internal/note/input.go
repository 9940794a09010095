package note

import (
	"math"
	"regexp"
	"strings"

	"github.com/hpungsan/annot/internal/errors"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Input is the client-supplied body for creating or fully replacing a note.
// Pointer fields distinguish "absent" from zero values.
type Input struct {
	DocID           string          `json:"doc_id"`
	Page            *int            `json:"page,omitempty"`
	X               *float64        `json:"x"`
	Y               *float64        `json:"y"`
	Content         *string         `json:"content"`
	Color           string          `json:"color,omitempty"`
	CoordinateSpace CoordinateSpace `json:"coordinate_space,omitempty"`
	RefWidth        *int            `json:"ref_width,omitempty"`
	RefHeight       *int            `json:"ref_height,omitempty"`
}

// Resolve validates the input, applies defaults, and returns the note it
// describes with ID left zero. Values are echoed as given; no coordinate
// conversion happens here.
func (in Input) Resolve() (*Note, error) {
	docID := strings.TrimSpace(in.DocID)
	if docID == "" {
		return nil, errors.NewInvalidRequest("doc_id is required")
	}

	page := DefaultPage
	if in.Page != nil {
		page = *in.Page
	}
	if page < 1 {
		return nil, errors.NewInvalidRequest("page must be >= 1")
	}

	if in.X == nil || in.Y == nil {
		return nil, errors.NewInvalidRequest("x and y are required")
	}
	x, y := *in.X, *in.Y
	if !finite(x) || !finite(y) {
		return nil, errors.NewInvalidRequest("x and y must be finite numbers")
	}

	if in.Content == nil {
		return nil, errors.NewInvalidRequest("content is required")
	}

	space := in.CoordinateSpace
	if space == "" {
		space = SpaceNormalized
	}
	if !space.Valid() {
		return nil, errors.NewInvalidRequest("coordinate_space must be one of: normalized, pixel")
	}

	switch space {
	case SpaceNormalized:
		if x < 0 || x > 1 || y < 0 || y > 1 {
			return nil, errors.NewInvalidRequest("normalized x and y must be within [0, 1]")
		}
	case SpacePixel:
		if x < 0 || y < 0 {
			return nil, errors.NewInvalidRequest("pixel x and y must be non-negative")
		}
	}

	if (in.RefWidth != nil && *in.RefWidth <= 0) || (in.RefHeight != nil && *in.RefHeight <= 0) {
		return nil, errors.NewInvalidRequest("ref_width and ref_height must be positive when set")
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = DefaultColor
	}
	if !colorPattern.MatchString(color) {
		return nil, errors.NewInvalidRequest("color must be a hex color like #fbbf24")
	}

	return &Note{
		DocID:           docID,
		Page:            page,
		X:               x,
		Y:               y,
		Content:         *in.Content,
		Color:           color,
		CoordinateSpace: space,
		RefWidth:        in.RefWidth,
		RefHeight:       in.RefHeight,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
