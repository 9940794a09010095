package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/note"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
func stringPtr(s string) *string  { return &s }

type testEnv struct {
	cfg   *config.Config
	db    *sql.DB
	store *docstore.Store
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(t)

	database, err := db.Init(context.Background(), cfg.DBPath)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := docstore.New(cfg.UploadDir, docstore.NewMemoryRegistry(), nil)
	if err != nil {
		t.Fatalf("docstore.New failed: %v", err)
	}

	return &testEnv{cfg: cfg, db: database, store: store}
}

func noteInput(docID string, page int, x, y float64, content string) note.Input {
	return note.Input{
		DocID:   docID,
		Page:    intPtr(page),
		X:       floatPtr(x),
		Y:       floatPtr(y),
		Content: stringPtr(content),
	}
}

func mustCreate(t *testing.T, env *testEnv, in note.Input) *note.Note {
	t.Helper()
	n, err := CreateNote(context.Background(), env.db, in)
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	return n
}

