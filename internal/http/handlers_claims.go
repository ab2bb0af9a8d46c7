package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reimburse/internal/core"
	applog "reimburse/internal/log"
)

// handleListClaims is the list screen gaining focus: the collection is
// reloaded from the store every time.
func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Presenter.Load(r.Context()))
}

func (s *Server) handleRefreshClaims(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Presenter.Refresh(r.Context()))
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	c, ok := s.deps.Claims.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, errClaimNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch core.ClaimPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.IsEmpty() {
		writeError(w, r, badRequest("patch has no fields"))
		return
	}
	if _, ok := s.deps.Claims.Get(r.Context(), id); !ok {
		writeError(w, r, errClaimNotFound)
		return
	}
	if err := s.deps.Claims.Update(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}

	c, ok := s.deps.Claims.Get(r.Context(), id)
	if !ok {
		writeError(w, r, errClaimNotFound)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Claim updated",
		applog.FieldClaimID, id, applog.FieldClaimStatus, c.Status)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRemoveClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.deps.Claims.Get(r.Context(), id); !ok {
		writeError(w, r, errClaimNotFound)
		return
	}
	if err := s.deps.Claims.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Claim removed", applog.FieldClaimID, id)
	noContent(w)
}

// handleReplaceClaims overwrites the whole collection with the request body,
// which must be a JSON array of claims.
func (s *Server) handleReplaceClaims(w http.ResponseWriter, r *http.Request) {
	var items []core.Claim
	if err := decodeJSON(w, r, &items); err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Claim{}
	}
	if err := s.deps.Claims.ReplaceAll(r.Context(), items); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Claims.GetAll(r.Context()))
}

func (s *Server) handleClearClaims(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Claims.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Claims cleared")
	noContent(w)
}

func (s *Server) handleResetClaims(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Claims.ResetToDefault(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Claims.GetAll(r.Context()))
}
