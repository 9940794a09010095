package ops

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
)

// ExportFormat selects the rendering of a notes export.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatHTML     ExportFormat = "html"
)

// ParseExportFormat parses a user-supplied format. Empty means markdown.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid format %q: must be one of md, html", s))
	}
}

// Ext returns the file extension used when writing this format.
func (f ExportFormat) Ext() string {
	return "." + string(f)
}

// ContentType returns the HTTP content type for this format.
func (f ExportFormat) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	DocID  string
	Format ExportFormat // default: md
	Path   string       // optional; when set the export is written here instead of returned
	ToFile bool         // write to DefaultExportPath when Path is empty
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	DocID      string       `json:"doc_id"`
	Format     ExportFormat `json:"format"`
	Count      int          `json:"count"`
	Content    string       `json:"content,omitempty"`
	Path       string       `json:"path,omitempty"`
	ExportedAt int64        `json:"exported_at"`
}

// Export renders every note of a document, grouped by page, as markdown or
// HTML. store may be nil; it is only used to look up the display filename.
func Export(ctx context.Context, database *sql.DB, store *docstore.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	docID, err := requireDocID(input.DocID)
	if err != nil {
		return nil, err
	}

	format := input.Format
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid format %q: must be one of md, html", format))
	}

	notes, err := db.ListNotes(ctx, database, docID, nil)
	if err != nil {
		return nil, err
	}

	title := docID
	if store != nil {
		doc, err := store.Find(ctx, docID)
		switch {
		case err == nil:
			title = doc.Filename
		case errors.Is(err, errors.ErrNotFound):
			// Notes may reference a document that was never uploaded here
		default:
			return nil, err
		}
	}

	md := RenderMarkdown(title, docID, notes)
	content := md
	if format == FormatHTML {
		content, err = RenderHTML(title, md)
		if err != nil {
			return nil, err
		}
	}

	out := &ExportOutput{
		DocID:      docID,
		Format:     format,
		Count:      len(notes),
		ExportedAt: time.Now().Unix(),
	}

	exportPath := input.Path
	if exportPath == "" && input.ToFile {
		if cfg == nil || cfg.ExportDir == "" {
			return nil, errors.NewInvalidRequest("no export directory configured")
		}
		exportPath = DefaultExportPath(cfg.ExportDir, title, format, time.Unix(out.ExportedAt, 0))
	}
	if exportPath == "" {
		out.Content = content
		return out, nil
	}

	// Default paths are validated too; the title comes from an uploaded filename
	if err := ValidatePath(exportPath, PathCheckWrite, []string{format.Ext()}, cfg); err != nil {
		return nil, err
	}
	if err := writeExportFile(exportPath, []byte(content)); err != nil {
		return nil, err
	}
	out.Path = exportPath
	return out, nil
}

// DefaultExportPath returns <dir>/<title>-notes-<timestamp><ext>, with the
// title stripped of its extension and sanitized.
func DefaultExportPath(dir, title string, format ExportFormat, now time.Time) string {
	stem := strings.TrimSuffix(title, filepath.Ext(title))
	name := SanitizeForFilename(stem) + "-notes-" + now.Format("2006-01-02T150405") + format.Ext()
	return filepath.Join(dir, name)
}

// noteHeadingDepth is the heading level of a single note in an export.
const noteHeadingDepth = 3

// RenderMarkdown renders notes as a markdown document, one section per page.
// Positions are shown as percentages of the page.
func RenderMarkdown(title, docID string, notes []note.Note) string {
	sorted := make([]note.Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	var b strings.Builder
	fmt.Fprintf(&b, "# Notes: %s\n\n", title)
	fmt.Fprintf(&b, "Document `%s`, %d %s\n", docID, len(sorted), plural(len(sorted), "note", "notes"))

	page := 0
	for i := range sorted {
		n := &sorted[i]
		if n.Page != page {
			page = n.Page
			fmt.Fprintf(&b, "\n## Page %d\n", page)
		}

		fmt.Fprintf(&b, "\n### Note %d at %s\n\n", n.ID, describePosition(n))
		fmt.Fprintf(&b, "Color `%s`\n\n", n.Color)
		content := nestHeadings(strings.TrimSpace(n.Content), noteHeadingDepth)
		if content == "" {
			content = "_(empty)_"
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String()
}

// exportMarkdown renders note exports. Raw HTML is not enabled; fenced code
// in notes is highlighted with inline styles so the page stands alone.
var exportMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
	),
)

// RenderHTML converts a markdown export into a standalone HTML page.
// Raw HTML inside note content is not passed through.
func RenderHTML(title, md string) (string, error) {
	var body bytes.Buffer
	if err := exportMarkdown.Convert([]byte(md), &body); err != nil {
		return "", errors.NewInternal(fmt.Errorf("render markdown: %w", err))
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Notes: %s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func describePosition(n *note.Note) string {
	x, y, ok := n.Position(0, 0)
	if !ok {
		return fmt.Sprintf("pixel (%g, %g)", n.X, n.Y)
	}
	return fmt.Sprintf("%.1f%%, %.1f%%", x*100, y*100)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// writeExportFile writes data to a temp file beside path and renames it into
// place, so an existing export survives a failed write.
func writeExportFile(exportPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
