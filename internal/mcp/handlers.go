package mcp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
	"github.com/hpungsan/annot/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	store  *docstore.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, store *docstore.Store, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{db: database, store: store, cfg: cfg, logger: logger.With("component", "mcp")}
}

// Request types for each tool

// NoteIDRequest addresses a single note.
type NoteIDRequest struct {
	ID int64 `json:"id"`
}

// NoteUpdateRequest is a note id plus the full replacement body.
type NoteUpdateRequest struct {
	ID int64 `json:"id"`
	note.Input
}

// NoteListRequest represents the arguments for note_list.
type NoteListRequest struct {
	DocID string `json:"doc_id"`
	Page  *int   `json:"page,omitempty"`
}

// NoteExportRequest represents the arguments for note_export.
type NoteExportRequest struct {
	DocID  string `json:"doc_id"`
	Format string `json:"format,omitempty"`
	Path   string `json:"path,omitempty"`
	ToFile bool   `json:"to_file,omitempty"`
}

// DocumentUploadRequest represents the arguments for document_upload.
type DocumentUploadRequest struct {
	Path       string `json:"path,omitempty"`
	DataBase64 string `json:"data_base64,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// Handler implementations

// HandleNoteCreate handles the note_create tool call.
func (h *Handlers) HandleNoteCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[note.Input](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	n, err := ops.CreateNote(ctx, h.db, input)
	if err != nil {
		return h.fail(ctx, "note_create", err), nil
	}
	return successResult(n)
}

// HandleNoteGet handles the note_get tool call.
func (h *Handlers) HandleNoteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	n, err := ops.GetNote(ctx, h.db, ops.GetNoteInput{ID: input.ID})
	if err != nil {
		return h.fail(ctx, "note_get", err), nil
	}
	return successResult(n)
}

// HandleNoteList handles the note_list tool call.
func (h *Handlers) HandleNoteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.ListNotes(ctx, h.db, ops.ListNotesInput{DocID: input.DocID, Page: input.Page})
	if err != nil {
		return h.fail(ctx, "note_list", err), nil
	}
	return successResult(out)
}

// HandleNoteUpdate handles the note_update tool call.
func (h *Handlers) HandleNoteUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	n, err := ops.UpdateNote(ctx, h.db, ops.UpdateNoteInput{ID: input.ID, Note: input.Input})
	if err != nil {
		return h.fail(ctx, "note_update", err), nil
	}
	return successResult(n)
}

// HandleNoteDelete handles the note_delete tool call.
func (h *Handlers) HandleNoteDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.DeleteNote(ctx, h.db, ops.DeleteNoteInput{ID: input.ID})
	if err != nil {
		return h.fail(ctx, "note_delete", err), nil
	}
	return successResult(out)
}

// HandleNoteExport handles the note_export tool call.
func (h *Handlers) HandleNoteExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	format, err := ops.ParseExportFormat(input.Format)
	if err != nil {
		return errorResult(err), nil
	}

	out, err := ops.Export(ctx, h.db, h.store, h.cfg, ops.ExportInput{
		DocID:  input.DocID,
		Format: format,
		Path:   input.Path,
		ToFile: input.ToFile,
	})
	if err != nil {
		return h.fail(ctx, "note_export", err), nil
	}
	return successResult(out)
}

// HandleDocumentList handles the document_list tool call.
func (h *Handlers) HandleDocumentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := ops.ListDocuments(ctx, h.store, h.db)
	if err != nil {
		return h.fail(ctx, "document_list", err), nil
	}
	return successResult(out)
}

// HandleDocumentUpload handles the document_upload tool call.
// Exactly one of path and data_base64 must be set.
func (h *Handlers) HandleDocumentUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentUploadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var out *ops.UploadOutput
	switch {
	case input.Path != "" && input.DataBase64 != "":
		return errorResult(errors.NewInvalidRequest("provide either path or data_base64, not both")), nil
	case input.Path != "":
		out, err = ops.UploadFile(ctx, h.store, h.cfg, ops.UploadFileInput{
			Path:     input.Path,
			Filename: input.Filename,
		})
	case input.DataBase64 != "":
		data, decErr := base64.StdEncoding.DecodeString(input.DataBase64)
		if decErr != nil {
			return errorResult(errors.NewInvalidRequest("data_base64 is not valid base64")), nil
		}
		out, err = ops.Upload(ctx, h.store, h.cfg, ops.UploadInput{
			Filename: input.Filename,
			Data:     data,
		})
	default:
		return errorResult(errors.NewInvalidRequest("path or data_base64 is required")), nil
	}
	if err != nil {
		return h.fail(ctx, "document_upload", err), nil
	}
	return successResult(out)
}

// fail logs internal failures and converts err to a tool error result.
func (h *Handlers) fail(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	if errors.StatusOf(err) >= 500 {
		h.logger.ErrorContext(ctx, "tool failed", "tool", tool, "error", err)
	}
	return errorResult(err)
}
