package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reimburse/internal/core"
	applog "reimburse/internal/log"
	"reimburse/internal/submission"
)

// DraftView is an open claim form as returned to the client.
type DraftView struct {
	ID          string            `json:"id"`
	OpenedAt    string            `json:"openedAt"`
	State       string            `json:"state"`
	Attachments []core.Attachment `json:"attachments"`
}

func draftView(sess *submission.Session) DraftView {
	atts := sess.Draft().List()
	if atts == nil {
		atts = []core.Attachment{}
	}
	return DraftView{
		ID:          sess.ID,
		OpenedAt:    core.FormatCreatedAt(sess.OpenedAt),
		State:       sess.State().String(),
		Attachments: atts,
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*submission.Session, bool) {
	sess, err := s.deps.Sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.Open()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/drafts/"+sess.ID).
		Body(draftView(sess)).
		Write(w)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, draftView(sess))
}

// handleCancelDraft dismisses the form; its attachments are discarded.
func (s *Server) handleCancelDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Close(chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}

// handleAddAttachment accepts either a JSON attachment entry or a multipart
// form carrying the receipt file along with name and amount.
func (s *Server) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		in  core.AttachmentInput
		err error
	)
	if isMultipart(r) {
		in, err = parseAttachmentForm(w, r, s.deps.Receipts)
	} else {
		err = decodeJSON(w, r, &in)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	att, err := sess.Draft().Add(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Attachment added",
		applog.FieldSessionID, sess.ID, applog.FieldAttachments, sess.Draft().Len())
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleRemoveAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.Draft().Remove(chi.URLParam(r, "aid")) {
		writeError(w, r, errAttachmentNotFound)
		return
	}
	noContent(w)
}

// handleSubmit persists the form as a pending claim. A successful submit
// closes the form session; a failed one leaves it open for a retry.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var form submission.Form
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := sess.Submit(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = s.deps.Sessions.Close(sess.ID)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/claims/"+c.ID).
		Body(c).
		Write(w)
}
