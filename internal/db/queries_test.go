package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(context.Background(), filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(i int) *int { return &i }

func newTestNote(docID string, page int, content string) *note.Note {
	return &note.Note{
		DocID:           docID,
		Page:            page,
		X:               0.5,
		Y:               0.5,
		Content:         content,
		Color:           note.DefaultColor,
		CoordinateSpace: note.SpaceNormalized,
	}
}

func TestInsertAndGetNote(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	n := &note.Note{
		DocID:           "doc1",
		Page:            3,
		X:               320,
		Y:               240,
		Content:         "pixel note",
		Color:           "#22c55e",
		CoordinateSpace: note.SpacePixel,
		RefWidth:        intPtr(640),
		RefHeight:       intPtr(480),
	}
	if err := InsertNote(ctx, db, n); err != nil {
		t.Fatalf("InsertNote() error = %v", err)
	}
	if n.ID <= 0 {
		t.Fatalf("ID = %d, want positive", n.ID)
	}

	got, err := GetNote(ctx, db, n.ID)
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if got.DocID != "doc1" || got.Page != 3 || got.X != 320 || got.Y != 240 {
		t.Errorf("GetNote() = %+v", got)
	}
	if got.CoordinateSpace != note.SpacePixel || got.Color != "#22c55e" {
		t.Errorf("space/color = %q/%q", got.CoordinateSpace, got.Color)
	}
	if got.RefWidth == nil || *got.RefWidth != 640 || got.RefHeight == nil || *got.RefHeight != 480 {
		t.Errorf("ref dims not round-tripped: %v %v", got.RefWidth, got.RefHeight)
	}
}

func TestInsertNote_IDsIncrease(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	a := newTestNote("doc", 1, "a")
	b := newTestNote("doc", 1, "b")
	if err := InsertNote(ctx, db, a); err != nil {
		t.Fatal(err)
	}
	if err := InsertNote(ctx, db, b); err != nil {
		t.Fatal(err)
	}
	if b.ID <= a.ID {
		t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := setupDB(t)

	_, err := GetNote(context.Background(), db, 42)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetNote() error = %v, want NOT_FOUND", err)
	}
}

func TestListNotes_PageFilter(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	for _, n := range []*note.Note{
		newTestNote("doc", 1, "p1-a"),
		newTestNote("doc", 2, "p2"),
		newTestNote("doc", 1, "p1-b"),
		newTestNote("other", 1, "elsewhere"),
	} {
		if err := InsertNote(ctx, db, n); err != nil {
			t.Fatal(err)
		}
	}

	all, err := ListNotes(ctx, db, "doc", nil)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Errorf("notes not ordered by id")
		}
	}

	p1, err := ListNotes(ctx, db, "doc", intPtr(1))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ListNotes(ctx, db, "doc", intPtr(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(p1) != 2 || len(p2) != 1 {
		t.Errorf("page split = %d/%d, want 2/1", len(p1), len(p2))
	}
	if len(p1)+len(p2) != len(all) {
		t.Error("per-page lists should union to the unfiltered list")
	}
	if p1[0].Content != "p1-a" || p1[1].Content != "p1-b" {
		t.Errorf("page 1 order = %q, %q", p1[0].Content, p1[1].Content)
	}
}

func TestListNotes_Empty(t *testing.T) {
	db := setupDB(t)

	notes, err := ListNotes(context.Background(), db, "nothing", nil)
	if err != nil {
		t.Fatal(err)
	}
	if notes == nil || len(notes) != 0 {
		t.Errorf("ListNotes() = %v, want empty non-nil slice", notes)
	}
}

func TestReplaceNote(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	n := newTestNote("doc", 1, "before")
	n.CoordinateSpace = note.SpacePixel
	n.RefWidth = intPtr(100)
	n.RefHeight = intPtr(100)
	if err := InsertNote(ctx, db, n); err != nil {
		t.Fatal(err)
	}

	replacement := newTestNote("doc", 4, "after")
	replacement.ID = n.ID
	replacement.Color = "#ef4444"
	if err := ReplaceNote(ctx, db, replacement); err != nil {
		t.Fatalf("ReplaceNote() error = %v", err)
	}

	got, err := GetNote(ctx, db, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Page != 4 || got.Content != "after" || got.Color != "#ef4444" {
		t.Errorf("replace not applied: %+v", got)
	}
	if got.CoordinateSpace != note.SpaceNormalized {
		t.Errorf("CoordinateSpace = %q, want normalized", got.CoordinateSpace)
	}
	if got.RefWidth != nil || got.RefHeight != nil {
		t.Error("full replace should clear ref dims that were omitted")
	}
}

func TestReplaceNote_NotFound(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	ghost := newTestNote("doc", 1, "ghost")
	ghost.ID = 99
	err := ReplaceNote(ctx, db, ghost)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("ReplaceNote() error = %v, want NOT_FOUND", err)
	}

	notes, err := ListNotes(ctx, db, "doc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("ReplaceNote on missing id wrote %d rows", len(notes))
	}
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	n := newTestNote("doc", 1, "bye")
	if err := InsertNote(ctx, db, n); err != nil {
		t.Fatal(err)
	}

	if err := DeleteNote(ctx, db, n.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := GetNote(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetNote() after delete error = %v, want NOT_FOUND", err)
	}

	// Second delete reports not found
	if err := DeleteNote(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteNote() error = %v, want NOT_FOUND", err)
	}
}

func TestDeleteNote_LeavesOthers(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	keep := newTestNote("doc", 1, "keep")
	drop := newTestNote("doc", 1, "drop")
	for _, n := range []*note.Note{keep, drop} {
		if err := InsertNote(ctx, db, n); err != nil {
			t.Fatal(err)
		}
	}

	if err := DeleteNote(ctx, db, drop.ID); err != nil {
		t.Fatal(err)
	}

	notes, err := ListNotes(ctx, db, "doc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != keep.ID {
		t.Errorf("remaining = %+v, want only %d", notes, keep.ID)
	}
}

func TestCountNotes(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	for _, n := range []*note.Note{
		newTestNote("a", 1, "1"),
		newTestNote("a", 2, "2"),
		newTestNote("b", 1, "3"),
	} {
		if err := InsertNote(ctx, db, n); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := CountNotes(ctx, db)
	if err != nil {
		t.Fatalf("CountNotes() error = %v", err)
	}
	if counts["a"] != 2 || counts["b"] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestConcurrentWritesOnSeparateNotes(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	const (
		writers = 16
		rounds  = 50
	)

	replaced := make([]*note.Note, writers)
	deleted := make([]*note.Note, writers)
	for i := range writers {
		replaced[i] = newTestNote("doc", 1, "initial")
		deleted[i] = newTestNote("doc", 2, "doomed")
		if err := InsertNote(ctx, db, replaced[i]); err != nil {
			t.Fatalf("InsertNote() error = %v", err)
		}
		if err := InsertNote(ctx, db, deleted[i]); err != nil {
			t.Fatalf("InsertNote() error = %v", err)
		}
	}

	errs := make(chan error, writers*(rounds+1))
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(2)
		go func(n note.Note) {
			defer wg.Done()
			for r := range rounds {
				n.Content = fmt.Sprintf("round %d", r)
				if err := ReplaceNote(ctx, db, &n); err != nil {
					errs <- fmt.Errorf("replace %d: %w", n.ID, err)
				}
			}
		}(*replaced[i])
		go func(id int64) {
			defer wg.Done()
			if err := DeleteNote(ctx, db, id); err != nil {
				errs <- fmt.Errorf("delete %d: %w", id, err)
			}
		}(deleted[i].ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	notes, err := ListNotes(ctx, db, "doc", nil)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != writers {
		t.Fatalf("len(notes) = %d, want %d", len(notes), writers)
	}
	want := fmt.Sprintf("round %d", rounds-1)
	for _, n := range notes {
		if n.Content != want {
			t.Errorf("note %d content = %q, want %q", n.ID, n.Content, want)
		}
	}
}
