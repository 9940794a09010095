package ops

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
)

func TestExport_MarkdownGroupedByPage(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	up, err := Upload(ctx, env.store, env.cfg, UploadInput{Filename: "Plans.png", Data: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	mustCreate(t, env, noteInput(up.DocID, 2, 0.5, 0.25, "second page"))
	first := mustCreate(t, env, noteInput(up.DocID, 1, 0.125, 0.4, "first page"))

	out, err := Export(ctx, env.db, env.store, env.cfg, ExportInput{DocID: up.DocID})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if out.Count != 2 || out.Format != FormatMarkdown {
		t.Errorf("out = %+v", out)
	}
	md := out.Content
	if !strings.HasPrefix(md, "# Notes: Plans.png\n") {
		t.Errorf("missing title:\n%s", md)
	}
	p1 := strings.Index(md, "## Page 1")
	p2 := strings.Index(md, "## Page 2")
	if p1 < 0 || p2 < 0 || p1 > p2 {
		t.Errorf("pages not in order:\n%s", md)
	}
	if !strings.Contains(md, "### Note "+strconv.FormatInt(first.ID, 10)+" at 12.5%, 40.0%") {
		t.Errorf("position not rendered as percentage:\n%s", md)
	}
}

func TestExport_PixelNotesReconciled(t *testing.T) {
	env := setupEnv(t)

	in := noteInput("img", 1, 320, 120, "pixel")
	in.CoordinateSpace = note.SpacePixel
	in.RefWidth = intPtr(640)
	in.RefHeight = intPtr(480)
	mustCreate(t, env, in)

	legacy := noteInput("img", 1, 10, 20, "no ref")
	legacy.CoordinateSpace = note.SpacePixel
	mustCreate(t, env, legacy)

	out, err := Export(context.Background(), env.db, nil, env.cfg, ExportInput{DocID: "img"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Content, "at 50.0%, 25.0%") {
		t.Errorf("pixel note not normalized:\n%s", out.Content)
	}
	if !strings.Contains(out.Content, "at pixel (10, 20)") {
		t.Errorf("pixel note without size should show raw coordinates:\n%s", out.Content)
	}
	// Without a store the title falls back to the doc id
	if !strings.HasPrefix(out.Content, "# Notes: img\n") {
		t.Errorf("title:\n%s", out.Content)
	}
}

func TestExport_HTMLEscapesRawHTML(t *testing.T) {
	env := setupEnv(t)
	mustCreate(t, env, noteInput("doc", 1, 0.5, 0.5, "**bold** <script>alert(1)</script>"))

	out, err := Export(context.Background(), env.db, env.store, env.cfg, ExportInput{DocID: "doc", Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	html := out.Content
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Errorf("not a standalone page:\n%s", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered:\n%s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw HTML passed through:\n%s", html)
	}
}

func TestExport_HTMLHighlightsCodeAndGFM(t *testing.T) {
	env := setupEnv(t)
	mustCreate(t, env, noteInput("doc", 1, 0.5, 0.5, "~~old~~ idea\n\n```go\nfunc main() {}\n```"))

	out, err := Export(context.Background(), env.db, env.store, env.cfg, ExportInput{DocID: "doc", Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if !strings.Contains(out.Content, "<del>old</del>") {
		t.Errorf("strikethrough not rendered:\n%s", out.Content)
	}
	if !strings.Contains(out.Content, "<pre") || !strings.Contains(out.Content, `style="`) {
		t.Errorf("code block not highlighted inline:\n%s", out.Content)
	}
}

func TestExport_WritesFile(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	mustCreate(t, env, noteInput("doc", 1, 0.5, 0.5, "saved"))

	path := filepath.Join(env.cfg.ExportDir, "doc.md")
	out, err := Export(ctx, env.db, env.store, env.cfg, ExportInput{DocID: "doc", Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != path || out.Content != "" {
		t.Errorf("out = %+v", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if !strings.Contains(string(data), "saved") {
		t.Errorf("file content:\n%s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("export permissions = %o, want owner-only", perm)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	env := setupEnv(t)
	mustCreate(t, env, noteInput("doc", 1, 0.5, 0.5, "x"))

	out, err := Export(context.Background(), env.db, env.store, env.cfg, ExportInput{DocID: "doc", Format: FormatHTML, ToFile: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(out.Path) != env.cfg.ExportDir {
		t.Errorf("Path = %q, want inside %q", out.Path, env.cfg.ExportDir)
	}
	if !strings.HasSuffix(out.Path, ".html") {
		t.Errorf("Path = %q, want .html", out.Path)
	}
}

func TestExport_Rejections(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	if _, err := Export(ctx, env.db, env.store, env.cfg, ExportInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing doc_id: got %v", err)
	}
	if _, err := Export(ctx, env.db, env.store, env.cfg, ExportInput{DocID: "d", Format: "pdf"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad format: got %v", err)
	}

	wrongExt := filepath.Join(env.cfg.ExportDir, "notes.html")
	if _, err := Export(ctx, env.db, env.store, env.cfg, ExportInput{DocID: "d", Path: wrongExt}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("extension mismatch: got %v", err)
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"docx", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestDefaultExportPath(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	got := DefaultExportPath("/exports", "../Q1 report.pdf", FormatMarkdown, now)
	want := filepath.Join("/exports", "Q1 report-notes-2026-03-04T050607.md")
	if got != want {
		t.Errorf("DefaultExportPath() = %q, want %q", got, want)
	}
}
