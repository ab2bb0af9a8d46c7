package http

import (
	"context"
	"net/http"
	"time"

	"reimburse/internal/core"
	applog "reimburse/internal/log"
	"reimburse/internal/receipts"
)

const healthTimeout = 2 * time.Second

// ReceiptUpload is the response of a receipt upload.
type ReceiptUpload struct {
	Location    string              `json:"location"`
	ContentType string              `json:"contentType"`
	Kind        core.AttachmentKind `json:"kind"`
}

// handleUploadReceipt stores a receipt image or PDF and returns the location
// to use as an attachment's imageLocation.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, r, badRequest("expected multipart/form-data with a %q part", receiptField))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}

	location, contentType, ok, err := storeReceipt(r, s.deps.Receipts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, badRequest("missing %q part", receiptField))
		return
	}

	kind := core.KindDocument
	if receipts.IsPhoto(contentType) {
		kind = core.KindPhoto
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ReceiptsUploaded.Inc()
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Receipt stored",
		applog.FieldOperation, applog.OpUpload, "content_type", contentType)

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(ReceiptUpload{Location: location, ContentType: contentType, Kind: kind}).
		Write(w)
}

// handleCategories lists the claim types the form accepts.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories())
}

func (s *Server) handleApprovalChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.SampleApprovalChain())
}

// handleHealth reports 503 when the storage backend cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Health check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
