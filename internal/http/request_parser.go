package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/receipts"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = receipts.MaxSize + 1<<20
	multipartMemory  = 1 << 20
	receiptField     = "file"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON value into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return receipts.ErrTooLarge
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON value")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart bounds the body and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return receipts.ErrTooLarge
		}
		return badRequest("invalid multipart form: %v", err)
	}
	return nil
}

// storeReceipt saves the uploaded receipt part and returns its location and
// normalized content type. ok is false when the form has no receipt part.
func storeReceipt(r *http.Request, store receipts.Store) (location, contentType string, ok bool, err error) {
	file, header, err := r.FormFile(receiptField)
	if errors.Is(err, http.ErrMissingFile) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, badRequest("invalid receipt part: %v", err)
	}
	defer file.Close()

	contentType, err = receipts.NormalizeContentType(partContentType(header))
	if err != nil {
		return "", "", false, err
	}
	location, err = store.Put(r.Context(), header.Filename, contentType, file)
	if err != nil {
		return "", "", false, err
	}
	return location, contentType, true, nil
}

func hasReceiptPart(r *http.Request) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.File[receiptField]) > 0
}

func partContentType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

// parseAttachmentForm reads an attachment entry from a multipart form. The
// fields are validated before anything is stored, so a rejected entry never
// leaves a receipt behind. A receipt part then becomes imageLocation and
// the kind follows its content type unless given explicitly.
func parseAttachmentForm(w http.ResponseWriter, r *http.Request, store receipts.Store) (core.AttachmentInput, error) {
	if err := parseMultipart(w, r); err != nil {
		return core.AttachmentInput{}, err
	}

	in := core.AttachmentInput{
		Name:          strings.TrimSpace(r.FormValue("name")),
		Amount:        strings.TrimSpace(r.FormValue("amount")),
		Kind:          core.AttachmentKind(strings.TrimSpace(r.FormValue("kind"))),
		ImageLocation: strings.TrimSpace(r.FormValue("imageLocation")),
	}

	check := in
	if hasReceiptPart(r) {
		check.ImageLocation = receiptField
	}
	if err := check.Validate(); err != nil {
		return core.AttachmentInput{}, err
	}

	location, contentType, ok, err := storeReceipt(r, store)
	if err != nil {
		return core.AttachmentInput{}, err
	}
	if ok {
		in.ImageLocation = location
		if in.Kind == "" {
			in.Kind = core.KindDocument
			if receipts.IsPhoto(contentType) {
				in.Kind = core.KindPhoto
			}
		}
	}
	return in, nil
}
