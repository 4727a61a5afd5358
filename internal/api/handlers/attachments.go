package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/attachments"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const multipartMemory = 8 << 20

// AttachmentService is satisfied by *attachments.Service.
type AttachmentService interface {
	Upload(ctx context.Context, userID, txID, filename, contentType string, r io.Reader) (domain.Transaction, error)
	Download(ctx context.Context, userID, txID string, index int) (attachments.Attachment, error)
}

type AttachmentsHandler struct {
	svc      AttachmentService
	maxBytes int64
	log      zerolog.Logger
}

// NewAttachmentsHandler creates the handler. A nil svc makes both endpoints
// answer 503.
func NewAttachmentsHandler(svc AttachmentService, maxBytes int64, log zerolog.Logger) *AttachmentsHandler {
	return &AttachmentsHandler{svc: svc, maxBytes: maxBytes, log: log}
}

// Upload handles POST /api/transactions/{id}/attachments with a multipart "file" field.
func (h *AttachmentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.svc == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Attachments are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	tx, err := h.svc.Upload(r.Context(), userID, r.PathValue("id"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload attachment")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Download handles GET /api/transactions/{id}/attachments/{index}
func (h *AttachmentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.svc == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Attachments are not configured")
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	att, err := h.svc.Download(r.Context(), userID, r.PathValue("id"), index)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to download attachment")
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(att.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.Data)
}
