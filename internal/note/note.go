// Package note defines the annotation record and the validated input used to
// create or replace one.
package note

// CoordinateSpace is the frame of reference for a note's (x, y).
type CoordinateSpace string

const (
	// SpaceNormalized positions are fractions of the page size, in [0,1].
	SpaceNormalized CoordinateSpace = "normalized"
	// SpacePixel positions are absolute pixels at the RefWidth x RefHeight render size.
	SpacePixel CoordinateSpace = "pixel"
)

// DefaultColor is used when a note is created without a color.
const DefaultColor = "#fbbf24"

// DefaultPage is the page assigned when input omits one.
const DefaultPage = 1

// Valid reports whether s is a known coordinate space.
func (s CoordinateSpace) Valid() bool {
	return s == SpaceNormalized || s == SpacePixel
}

// Note is a positional annotation attached to one page of a document.
// Fields correspond to the columns of the notes table.
type Note struct {
	// ID is assigned by the repository on insert and never reused
	ID int64 `json:"id"`

	// DocID is the content hash of the annotated document (not FK-enforced)
	DocID string `json:"doc_id"`

	// Page is 1-based
	Page int `json:"page"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	Content string `json:"content"`
	Color   string `json:"color"`

	CoordinateSpace CoordinateSpace `json:"coordinate_space"`

	// RefWidth and RefHeight record the rendered page size at creation time.
	// Nil for normalized notes and legacy rows.
	RefWidth  *int `json:"ref_width"`
	RefHeight *int `json:"ref_height"`
}
