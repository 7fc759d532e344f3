package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/resume-typesetter/internal/library"
	"github.com/jonathan/resume-typesetter/internal/metrics"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/server/middleware"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// TemplateHeader selects the template of a render; empty means rendering.DefaultTemplate.
const TemplateHeader = "X-Template-Name"

// ArchiveKeyHeader carries the archive key of a rendered PDF when archiving is enabled.
const ArchiveKeyHeader = "X-Archive-Key"

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Assembler.Templates().List()
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, names)
}

// handleGeneratePDF assembles the submission, persists its fragments and
// compiles the PDF. A persistence failure is logged and does not stop the render.
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := middleware.LoggerFrom(ctx)

	sub, err := decodeSubmission(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	profile, err := s.userService.Profile(ctx, userID)
	if err != nil {
		fail(w, r, err)
		return
	}

	templateName := r.Header.Get(TemplateHeader)
	doc, err := s.deps.Assembler.Assemble(ctx, sub, profile, templateName)
	if err != nil {
		var tmplErr *rendering.TemplateError
		if errors.As(err, &tmplErr) && tmplErr.NotFound() {
			errorResponse(w, http.StatusNotFound, fmt.Sprintf("Template '%s' not found.", tmplErr.Name))
			return
		}
		fail(w, r, err)
		return
	}

	s.persist(ctx, userID, sub)

	done := metrics.StartRender()
	pdf, err := s.deps.Renderer.Compile(ctx, doc)
	if err != nil {
		var compileErr *rendering.CompilationError
		if errors.As(err, &compileErr) {
			outcome := metrics.RenderFailed
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = metrics.RenderTimedOut
			}
			done(outcome)
			logger.WarnContext(ctx, "typst compilation failed",
				"template", templateName, "reason", compileErr.Message, "diagnostics", compileErr.Diagnostics)
			errorResponse(w, http.StatusInternalServerError, compileErr.Diagnostics)
			return
		}
		done(metrics.RenderFailed)
		fail(w, r, err)
		return
	}
	done(metrics.RenderSucceeded)

	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Store(ctx, userID, pdf)
		if err != nil {
			logger.WarnContext(ctx, "failed to archive PDF", "error", err)
		} else {
			w.Header().Set(ArchiveKeyHeader, key)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="resume.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		logger.WarnContext(ctx, "failed to write PDF response", "error", err)
	}
}

// persist bulk-saves the submission's fragments and records the outcome.
// Failures are logged; the report counts them.
func (s *Server) persist(ctx context.Context, userID uuid.UUID, sub *types.Submission) library.SaveReport {
	report, err := s.deps.Library.SaveSubmission(ctx, userID, sub)
	saved := 0
	for _, n := range report.Saved {
		saved += n
	}
	metrics.ObserveSave(saved, report.Skipped, report.Failed)
	if err != nil {
		middleware.LoggerFrom(ctx).WarnContext(ctx, "failed to persist submission fragments",
			"user_id", userID, "failed", report.Failed, "error", err)
	}
	return report
}

// handleSaveResume persists the submission's fragments without rendering.
func (s *Server) handleSaveResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	sub, err := decodeSubmission(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}

	report := s.persist(r.Context(), userID, sub)
	jsonResponse(w, http.StatusOK, report)
}

// handleSaveJSON echoes the normalized submission so clients can download it.
func (s *Server) handleSaveJSON(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	sub, err := decodeSubmission(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sub)
}
