package server

import (
	"net/http"

	"github.com/jonathan/resume-typesetter/internal/server/middleware"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// archiveListLimit caps GET /me/archive.
const archiveListLimit = 100

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := s.userService.Profile(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req types.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, r, validationError(err))
		return
	}

	user, err := s.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := s.userService.DeleteAccount(r.Context(), userID); err != nil {
		fail(w, r, err)
		return
	}
	if s.deps.Archive != nil {
		if err := s.deps.Archive.DeleteUser(r.Context(), userID); err != nil {
			middleware.LoggerFrom(r.Context()).WarnContext(r.Context(), "failed to remove archived PDFs",
				"user_id", userID, "error", err)
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	s.authHandler.UpdatePassword(w, r, userID)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	lib, err := s.deps.Library.Library(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, lib)
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if s.deps.Archive == nil {
		errorResponse(w, http.StatusNotFound, "PDF archive is not enabled")
		return
	}

	objects, err := s.deps.Archive.List(r.Context(), userID, archiveListLimit)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, objects)
}
