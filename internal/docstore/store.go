package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hpungsan/annot/internal/errors"
)

const (
	tempPrefix = ".upload-"
	tempSuffix = ".tmp"

	// pageCacheSize bounds the number of PDF page counts kept in memory.
	pageCacheSize = 1024
)

// Document describes one stored upload.
type Document struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Type       DocType   `json:"type"`
	UploadDate time.Time `json:"upload_date"`
	SizeBytes  int64     `json:"size_bytes"`
	PageCount  *int      `json:"page_count,omitempty"`
}

// StoreResult is returned by Store. Created is false when identical bytes
// were already on disk.
type StoreResult struct {
	Document
	Created bool `json:"-"`
}

// Store is a content-addressed directory of uploaded documents.
// Files are named {doc_id}{ext} where doc_id is the hex SHA-256 of the bytes.
type Store struct {
	dir      string
	registry Registry
	logger   *slog.Logger

	// pages caches PDF page counts by doc_id. Content never changes under
	// a doc_id, so entries never go stale.
	pages *lru.Cache[string, int]
}

// New opens the store rooted at dir, creating the directory if needed.
func New(dir string, registry Registry, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pages, err := lru.New[string, int](pageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page count cache: %w", err)
	}
	return &Store{
		dir:      dir,
		registry: registry,
		logger:   logger.With("component", "docstore"),
		pages:    pages,
	}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Store saves data under its content hash and records filename as its
// display name. The extension is checked before anything is written.
// Storing bytes that already exist leaves the file untouched.
func (s *Store) Store(ctx context.Context, data []byte, filename string) (*StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext, typ, ok := TypeOf(filename)
	if !ok {
		return nil, errors.NewUnsupportedType(filename, SupportedExtensions())
	}

	sum := sha256.Sum256(data)
	docID := hex.EncodeToString(sum[:])

	s.registry.Remember(docID, filename)

	path := filepath.Join(s.dir, docID+ext)
	created := false

	info, err := os.Stat(path)
	switch {
	case err == nil:
		s.logger.Debug("document already stored", "doc_id", docID)
	case os.IsNotExist(err):
		if err := s.writeAtomic(path, data); err != nil {
			s.logger.Error("store document", "doc_id", docID, "error", err)
			return nil, errors.NewInternal(err)
		}
		created = true
		if info, err = os.Stat(path); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.logger.Info("document stored", "doc_id", docID, "size", len(data))
	default:
		return nil, errors.NewInternal(err)
	}

	doc := Document{
		DocID:      docID,
		Filename:   filename,
		URL:        URL(docID, ext),
		Type:       typ,
		UploadDate: info.ModTime(),
		SizeBytes:  info.Size(),
	}
	if typ == TypePDF {
		doc.PageCount = s.pageCount(docID, func() (int, error) {
			return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
		})
	}

	return &StoreResult{Document: doc, Created: created}, nil
}

// List returns every stored document sorted by display name, case-insensitively.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	docs := []Document{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || isTemp(name) {
			continue
		}
		if _, _, ok := TypeOf(name); !ok {
			continue
		}
		docID := strings.TrimSuffix(name, filepath.Ext(name))
		if docID == "" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		docs = append(docs, s.describe(docID, name, info))
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := strings.ToLower(docs[i].Filename), strings.ToLower(docs[j].Filename)
		if a != b {
			return a < b
		}
		return docs[i].DocID < docs[j].DocID
	})

	return docs, nil
}

// Find returns the stored document with docID, or NotFound. Stored names
// are checked with a stat first; the directory is scanned only for files whose
// extension was not written in lower case.
func (s *Store) Find(ctx context.Context, docID string) (*Document, error) {
	if docID == "" || docID != filepath.Base(docID) || isTemp(docID) {
		return nil, errors.NewNotFound("document", docID)
	}

	for _, ext := range SupportedExtensions() {
		name := docID + ext
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err == nil && info.Mode().IsRegular() {
			doc := s.describe(docID, name, info)
			return &doc, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.NewInternal(err)
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.TrimSuffix(name, filepath.Ext(name)) != docID {
			continue
		}
		if _, _, ok := TypeOf(name); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		doc := s.describe(docID, name, info)
		return &doc, nil
	}

	return nil, errors.NewNotFound("document", docID)
}

// describe builds the listing entry for the stored file name.
func (s *Store) describe(docID, name string, info os.FileInfo) Document {
	ext, typ, _ := TypeOf(name)

	filename, ok := s.registry.Lookup(docID)
	if !ok {
		filename = FallbackFilename(docID, ext)
	}

	doc := Document{
		DocID:      docID,
		Filename:   filename,
		URL:        "/uploads/" + name,
		Type:       typ,
		UploadDate: info.ModTime(),
		SizeBytes:  info.Size(),
	}
	if typ == TypePDF {
		path := filepath.Join(s.dir, name)
		doc.PageCount = s.pageCount(docID, func() (int, error) {
			f, err := os.Open(path)
			if err != nil {
				return 0, err
			}
			defer f.Close()
			return api.PageCount(f, model.NewDefaultConfiguration())
		})
	}
	return doc
}

// Open opens a stored file by its on-disk name ({doc_id}{ext}).
// Names that are not plain stored-file names are reported as NotFound.
func (s *Store) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || isTemp(name) {
		return nil, errors.NewNotFound("document", name)
	}
	if _, _, ok := TypeOf(name); !ok {
		return nil, errors.NewNotFound("document", name)
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("document", name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return f, nil
}

// writeAtomic writes data to a unique temp file beside path, fsyncs it,
// and renames it into place. The temp file is removed on failure.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmpPath := filepath.Join(s.dir, tempPrefix+uuid.NewString()+tempSuffix)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// pageCount is best effort; unreadable PDFs simply have no page count.
// Only successful counts are cached.
func (s *Store) pageCount(docID string, count func() (int, error)) *int {
	if n, ok := s.pages.Get(docID); ok {
		return &n
	}
	n, err := count()
	if err != nil {
		s.logger.Debug("page count unavailable", "doc_id", docID, "error", err)
		return nil
	}
	s.pages.Add(docID, n)
	return &n
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix) || strings.HasSuffix(name, tempSuffix)
}
