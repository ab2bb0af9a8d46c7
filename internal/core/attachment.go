package core

import "strings"

const (
	KindPhoto    AttachmentKind = "photo"
	KindDocument AttachmentKind = "document"
)

type (
	AttachmentKind string

	// Attachment is a receipt entry collected in a draft session. It is
	// never persisted.
	Attachment struct {
		ID            string         `json:"id"`
		Name          string         `json:"name"`
		Amount        string         `json:"amount"`
		Kind          AttachmentKind `json:"kind"`
		ImageLocation string         `json:"imageLocation,omitempty"`
	}

	// AttachmentInput is an attachment before it gets an id.
	AttachmentInput struct {
		Name          string         `json:"name"`
		Amount        string         `json:"amount"`
		Kind          AttachmentKind `json:"kind"`
		ImageLocation string         `json:"imageLocation,omitempty"`
	}
)

func (k AttachmentKind) Valid() bool {
	return k == KindPhoto || k == KindDocument
}

// Validate applies the upload dialog rules: label and amount are required,
// and a photo needs the captured image.
func (in AttachmentInput) Validate() error {
	ve := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		ve.Missing = append(ve.Missing, "name")
	}
	if strings.TrimSpace(in.Amount) == "" {
		ve.Missing = append(ve.Missing, "amount")
	}
	kind := in.Kind
	if kind == "" {
		kind = KindPhoto
	}
	if !kind.Valid() {
		ve.Invalid = append(ve.Invalid, "kind")
	} else if kind == KindPhoto && strings.TrimSpace(in.ImageLocation) == "" {
		ve.Missing = append(ve.Missing, "imageLocation")
	}
	if len(ve.Missing) > 0 || len(ve.Invalid) > 0 {
		return ve
	}
	return nil
}
