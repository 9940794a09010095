package ops

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/errors"
)

// MsgAlreadyExists is returned when an upload matches stored content.
const MsgAlreadyExists = "Document already exists"

// UploadInput contains parameters for the Upload operation.
type UploadInput struct {
	Filename string
	Data     []byte
}

// UploadOutput contains the result of the Upload operation.
type UploadOutput struct {
	DocID     string           `json:"doc_id"`
	Filename  string           `json:"filename"`
	URL       string           `json:"url"`
	Type      docstore.DocType `json:"type"`
	Message   string           `json:"message,omitempty"`
	PageCount *int             `json:"page_count,omitempty"`
	Created   bool             `json:"-"`
}

// Upload stores a document under its content hash. Uploading bytes that are
// already stored returns the existing id with MsgAlreadyExists.
func Upload(ctx context.Context, store *docstore.Store, cfg *config.Config, input UploadInput) (*UploadOutput, error) {
	filename := baseName(input.Filename)
	if filename == "" {
		return nil, errors.NewInvalidRequest("filename is required")
	}

	if cfg != nil {
		if limit := cfg.MaxUploadBytes(); limit > 0 && int64(len(input.Data)) > limit {
			return nil, errors.NewPayloadTooLarge(limit)
		}
	}

	res, err := store.Store(ctx, input.Data, filename)
	if err != nil {
		return nil, err
	}

	out := &UploadOutput{
		DocID:     res.DocID,
		Filename:  res.Filename,
		URL:       res.URL,
		Type:      res.Type,
		PageCount: res.PageCount,
		Created:   res.Created,
	}
	if !res.Created {
		out.Message = MsgAlreadyExists
	}
	return out, nil
}

// UploadFileInput contains parameters for the UploadFile operation.
type UploadFileInput struct {
	Path     string
	Filename string // optional, defaults to the base name of Path
}

// UploadFile uploads a local file. The path must pass ValidatePath.
func UploadFile(ctx context.Context, store *docstore.Store, cfg *config.Config, input UploadFileInput) (*UploadOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, docstore.SupportedExtensions(), cfg); err != nil {
		return nil, err
	}

	f, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	var r io.Reader = f
	if cfg != nil && cfg.MaxUploadBytes() > 0 {
		// One extra byte lets Upload detect the overflow
		r = io.LimitReader(f, cfg.MaxUploadBytes()+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	filename := input.Filename
	if filename == "" {
		filename = filepath.Base(input.Path)
	}

	return Upload(ctx, store, cfg, UploadInput{Filename: filename, Data: data})
}

// baseName strips any client-side directory components from a filename.
func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
