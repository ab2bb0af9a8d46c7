package core

import (
	"errors"
	"testing"
)

func TestAttachmentInputValidate(t *testing.T) {
	good := AttachmentInput{Name: "Taxi receipt", Amount: "Rp 45.000", Kind: KindPhoto, ImageLocation: "file:///tmp/r.jpg"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	doc := AttachmentInput{Name: "Invoice", Amount: "Rp 10.000", Kind: KindDocument}
	if err := doc.Validate(); err != nil {
		t.Fatalf("document without image should be ok, got %v", err)
	}

	bads := []struct {
		in      AttachmentInput
		missing int
		invalid int
	}{
		{AttachmentInput{Amount: "1", ImageLocation: "x"}, 1, 0},
		{AttachmentInput{Name: "a", ImageLocation: "x"}, 1, 0},
		{AttachmentInput{Name: "a", Amount: "1"}, 1, 0}, // photo by default
		{AttachmentInput{Name: "a", Amount: "1", Kind: "video"}, 0, 1},
		{AttachmentInput{}, 3, 0},
	}
	for i, tc := range bads {
		err := tc.in.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if len(ve.Missing) != tc.missing || len(ve.Invalid) != tc.invalid {
			t.Fatalf("case %d: missing=%v invalid=%v", i, ve.Missing, ve.Invalid)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	pe := &PersistenceError{Op: "write", Err: errors.New("disk full")}
	wrapped := errors.Join(errors.New("add"), pe)
	if !IsPersistence(wrapped) || IsValidation(wrapped) {
		t.Fatalf("helpers misclassified %v", wrapped)
	}
	if pe.Error() != "persistence write: disk full" {
		t.Fatalf("unexpected message %q", pe.Error())
	}
	ve := &ValidationError{Missing: []string{"detail"}}
	if ve.Error() != "missing required field(s): detail" {
		t.Fatalf("unexpected message %q", ve.Error())
	}
}
