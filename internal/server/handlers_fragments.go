package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-typesetter/internal/library"
)

// fragmentTarget resolves the {kind} and optional {id} path values.
func fragmentTarget(w http.ResponseWriter, r *http.Request, withID bool) (library.Kind, uuid.UUID, bool) {
	kind, err := library.ParseKind(r.PathValue("kind"))
	if err != nil {
		errorResponse(w, http.StatusNotFound, err.Error())
		return "", uuid.Nil, false
	}
	if !withID {
		return kind, uuid.Nil, true
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid fragment ID")
		return "", uuid.Nil, false
	}
	return kind, id, true
}

func (s *Server) handleListFragments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, _, ok := fragmentTarget(w, r, false)
	if !ok {
		return
	}

	recs, err := s.deps.Library.ListFragments(r.Context(), userID, kind)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleCreateFragment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, _, ok := fragmentTarget(w, r, false)
	if !ok {
		return
	}

	data, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	rec, err := library.DecodeRecord(kind, data)
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := s.deps.Library.CreateFragment(r.Context(), userID, rec)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleGetFragment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, id, ok := fragmentTarget(w, r, true)
	if !ok {
		return
	}

	rec, err := s.deps.Library.GetFragment(r.Context(), userID, kind, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateFragment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, id, ok := fragmentTarget(w, r, true)
	if !ok {
		return
	}

	data, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	rec, err := library.DecodeRecord(kind, data)
	if err != nil {
		fail(w, r, err)
		return
	}

	updated, err := s.deps.Library.UpdateFragment(r.Context(), userID, id, rec)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteFragment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, id, ok := fragmentTarget(w, r, true)
	if !ok {
		return
	}

	if err := s.deps.Library.DeleteFragment(r.Context(), userID, kind, id); err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
