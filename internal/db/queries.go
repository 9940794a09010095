package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"

	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
)

const noteColumns = `id, doc_id, page, x, y, content, color, coordinate_space, ref_width, ref_height`

// InsertNote stores a new note and sets n.ID to the assigned id.
func InsertNote(ctx context.Context, db *sql.DB, n *note.Note) error {
	query := `
		INSERT INTO notes (doc_id, page, x, y, content, color, coordinate_space, ref_width, ref_height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		n.DocID, n.Page, n.X, n.Y, n.Content,
		n.Color, string(n.CoordinateSpace), toNullInt(n.RefWidth), toNullInt(n.RefHeight),
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	n.ID = id

	return nil
}

// GetNote retrieves a note by id.
func GetNote(ctx context.Context, db *sql.DB, id int64) (*note.Note, error) {
	row := db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("note", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

// ListNotes returns the notes of a document in insertion order, optionally
// restricted to one page.
func ListNotes(ctx context.Context, db *sql.DB, docID string, page *int) ([]note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE doc_id = ?`
	args := []any{docID}
	if page != nil {
		query += " AND page = ?"
		args = append(args, *page)
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	notes := []note.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return notes, nil
}

// ReplaceNote overwrites every mutable field of note n.ID in place.
// The existence check and the UPDATE run in one transaction; a missing id
// returns NotFound and writes nothing.
func ReplaceNote(ctx context.Context, db *sql.DB, n *note.Note) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := ensureExists(ctx, tx, n.ID); err != nil {
		return err
	}

	query := `
		UPDATE notes
		SET doc_id = ?, page = ?, x = ?, y = ?, content = ?,
			color = ?, coordinate_space = ?, ref_width = ?, ref_height = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, query,
		n.DocID, n.Page, n.X, n.Y, n.Content,
		n.Color, string(n.CoordinateSpace), toNullInt(n.RefWidth), toNullInt(n.RefHeight),
		n.ID,
	); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteNote permanently removes a note. Returns NotFound if it does not exist.
func DeleteNote(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := ensureExists(ctx, tx, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CountNotes returns the number of notes per document id.
func CountNotes(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT doc_id, COUNT(*) FROM notes GROUP BY doc_id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var docID string
		var count int
		if err := rows.Scan(&docID, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[docID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

func ensureExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, id).Scan(&exists)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFound("note", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote scans a single row into a Note. Legacy rows with NULL color or
// coordinate_space read back with the defaults.
func scanNote(row rowScanner) (*note.Note, error) {
	var (
		n         note.Note
		color     sql.NullString
		space     sql.NullString
		refWidth  sql.NullInt64
		refHeight sql.NullInt64
	)

	err := row.Scan(
		&n.ID, &n.DocID, &n.Page, &n.X, &n.Y, &n.Content,
		&color, &space, &refWidth, &refHeight,
	)
	if err != nil {
		return nil, err
	}

	n.Color = note.DefaultColor
	if color.Valid && color.String != "" {
		n.Color = color.String
	}
	n.CoordinateSpace = note.SpaceNormalized
	if space.Valid && space.String != "" {
		n.CoordinateSpace = note.CoordinateSpace(space.String)
	}
	n.RefWidth = fromNullInt(refWidth)
	n.RefHeight = fromNullInt(refHeight)

	return &n, nil
}

// toNullInt converts a *int to sql.NullInt64.
func toNullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// fromNullInt converts a sql.NullInt64 to *int.
func fromNullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
