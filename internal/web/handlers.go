package web

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/note"
	"github.com/hpungsan/annot/internal/ops"
)

const (
	// maxNoteBody caps JSON note bodies.
	maxNoteBody = 1 << 20

	// multipartOverhead is allowed on top of the file limit for form framing.
	multipartOverhead = 1 << 20

	// multipartMemory is kept in memory while parsing; the rest spills to disk.
	multipartMemory = 32 << 20
)

// Handlers contains the HTTP route handlers.
type Handlers struct {
	db     *sql.DB
	store  *docstore.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers wires handlers to their collaborators.
func NewHandlers(database *sql.DB, store *docstore.Store, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{db: database, store: store, cfg: cfg, logger: logger}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		renderJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUpload handles POST /upload with a multipart "file" field.
// Returns 201 for new content and 200 when the bytes were already stored.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			renderError(w, r, h.logger, errors.NewPayloadTooLarge(limit))
			return
		}
		renderError(w, r, h.logger, errors.NewInvalidRequest("expected multipart/form-data body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		renderError(w, r, h.logger, errors.NewInvalidRequest("missing file field"))
		return
	}
	defer file.Close()

	data, err := readPart(file, limit)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		renderError(w, r, h.logger, err)
		return
	}

	out, err := ops.Upload(r.Context(), h.store, h.cfg, ops.UploadInput{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		renderError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	result := "deduplicated"
	if out.Created {
		status = http.StatusCreated
		result = "created"
	}
	uploadsTotal.WithLabelValues(result).Inc()

	renderJSON(w, status, out)
}

// HandleListDocuments handles GET /documents.
func (h *Handlers) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListDocuments(r.Context(), h.store, h.db)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, out.Items)
}

// HandleExportNotes handles GET /documents/{doc_id}/notes/export?format=md|html.
func (h *Handlers) HandleExportNotes(w http.ResponseWriter, r *http.Request) {
	format, err := ops.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	out, err := ops.Export(r.Context(), h.db, h.store, h.cfg, ops.ExportInput{
		DocID:  chi.URLParam(r, "doc_id"),
		Format: format,
	})
	recordNoteOp("export", err)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out.Content)
}

// HandleCreateNote handles POST /notes.
func (h *Handlers) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in note.Input
	if err := decodeJSON(w, r, &in); err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	n, err := ops.CreateNote(r.Context(), h.db, in)
	recordNoteOp("create", err)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusCreated, n)
}

// HandleListNotes handles GET /notes?doc_id=...&page=....
func (h *Handlers) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	page, err := ops.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	out, err := ops.ListNotes(r.Context(), h.db, ops.ListNotesInput{
		DocID: r.URL.Query().Get("doc_id"),
		Page:  page,
	})
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, out.Items)
}

// HandleGetNote handles GET /notes/{id}.
func (h *Handlers) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := ops.ParseNoteID(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	n, err := ops.GetNote(r.Context(), h.db, ops.GetNoteInput{ID: id})
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, n)
}

// HandleUpdateNote handles PUT /notes/{id}. The body fully replaces the note.
func (h *Handlers) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := ops.ParseNoteID(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	var in note.Input
	if err := decodeJSON(w, r, &in); err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	n, err := ops.UpdateNote(r.Context(), h.db, ops.UpdateNoteInput{ID: id, Note: in})
	recordNoteOp("update", err)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, n)
}

// HandleDeleteNote handles DELETE /notes/{id}.
func (h *Handlers) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := ops.ParseNoteID(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	out, err := ops.DeleteNote(r.Context(), h.db, ops.DeleteNoteInput{ID: id})
	recordNoteOp("delete", err)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleServeUpload handles GET /uploads/{name}, serving stored bytes.
func (h *Handlers) HandleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := h.store.Open(name)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		renderError(w, r, h.logger, errors.NewInternal(err))
		return
	}

	// Content is immutable under its hash
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewPayloadTooLarge(maxNoteBody)
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// readPart reads an uploaded part, rejecting it once it exceeds limit bytes.
func readPart(file multipart.File, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewPayloadTooLarge(limit)
	}
	return data, nil
}
