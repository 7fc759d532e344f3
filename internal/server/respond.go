package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-typesetter/internal/schemas"
	"github.com/jonathan/resume-typesetter/internal/server/middleware"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// maxBodyBytes bounds request bodies; submissions may embed an image.
const maxBodyBytes = 10 << 20

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("error encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to its status. Unexpected errors are logged with the request
// context and answered with a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
		errorResponse(w, status, "Internal server error")
		return
	}
	errorResponse(w, status, err.Error())
}

// readBody reads the whole request body up to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &ErrValidation{Field: "body", Message: fmt.Sprintf("exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, &ErrValidation{Field: "body", Message: "could not be read"}
	}
	return data, nil
}

// decodeJSON decodes a bounded request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	return nil
}

// decodeSubmission validates the body against the submission schema, then
// decodes and normalizes it.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (*types.Submission, error) {
	data, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateSubmission(data); err != nil {
		return nil, err
	}

	var sub types.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid submission"}
	}
	sub.Normalize()
	return &sub, nil
}

// currentUser returns the authenticated user ID, answering 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
