package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/resume-typesetter/internal/types"
	"golang.org/x/sync/errgroup"
)

// Service implements fragment persistence on top of a Store.
//
// Bulk saves are insert-or-ignore: re-submitting identical content never
// creates a second row and never updates an existing one. Explicit creates and
// updates report natural-key collisions as *ConflictError instead.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SaveReport summarizes a bulk save.
type SaveReport struct {
	Saved   map[Kind]int `json:"saved"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
}

// withTx runs fn in a transaction, committing when fn succeeds.
func (s *Service) withTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertFragment stores rec for userID if no fragment with the same natural
// key exists and returns the id of the stored row. Calling it any number of
// times with the same key yields the same id. Records with a blank name are
// skipped and uuid.Nil is returned.
func (s *Service) UpsertFragment(ctx context.Context, userID uuid.UUID, rec Record) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		id, err = upsertFragment(ctx, tx, userID, &rec)
		return err
	})
	return id, err
}

// UpsertBullets attaches each non-blank bullet to the fragment unless it is
// already attached.
func (s *Service) UpsertBullets(ctx context.Context, kind Kind, fragmentID uuid.UUID, bullets []string) error {
	return s.withTx(ctx, func(tx Tx) error {
		return upsertBullets(ctx, tx, kind, fragmentID, bullets)
	})
}

// SaveFragment upserts rec and its bullets in one transaction.
func (s *Service) SaveFragment(ctx context.Context, userID uuid.UUID, rec Record) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		id, err = upsertFragment(ctx, tx, userID, &rec)
		if err != nil || id == uuid.Nil {
			return err
		}
		return upsertBullets(ctx, tx, rec.Kind, id, rec.Bullets)
	})
	return id, err
}

// SaveSubmission bulk-saves every section of sub, one transaction per
// fragment. A failing fragment does not stop the others; all failures are
// returned joined.
func (s *Service) SaveSubmission(ctx context.Context, userID uuid.UUID, sub *types.Submission) (SaveReport, error) {
	report := SaveReport{Saved: make(map[Kind]int)}
	var errs []error

	for _, rec := range SubmissionRecords(sub) {
		if rec.Name() == "" {
			report.Skipped++
			continue
		}
		if _, err := s.SaveFragment(ctx, userID, rec); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("failed to save %s %q: %w", rec.Kind, rec.Name(), err))
			continue
		}
		report.Saved[rec.Kind]++
	}

	if len(errs) > 0 {
		s.logger.WarnContext(ctx, "bulk save finished with failures",
			"user_id", userID, "failed", report.Failed, "skipped", report.Skipped)
	}
	return report, errors.Join(errs...)
}

// CreateFragment stores a new fragment with its bullets exactly as given.
// A fragment with the same natural key returns *ConflictError.
func (s *Service) CreateFragment(ctx context.Context, userID uuid.UUID, rec Record) (*Record, error) {
	if rec.Name() == "" {
		return nil, &InvalidFragmentError{Kind: rec.Kind, Message: mustSchema(rec.Kind).NameColumn + " is required"}
	}

	var created *Record
	err := s.withTx(ctx, func(tx Tx) error {
		id, err := tx.InsertFragment(ctx, userID, &rec)
		if errors.Is(err, ErrConflict) {
			return &ConflictError{Kind: rec.Kind, Name: rec.Name()}
		}
		if err != nil {
			return err
		}
		if err := replaceBullets(ctx, tx, rec.Kind, id, rec.Bullets); err != nil {
			return err
		}
		created, err = tx.GetFragment(ctx, rec.Kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetFragment returns a fragment owned by userID.
func (s *Service) GetFragment(ctx context.Context, userID uuid.UUID, kind Kind, id uuid.UUID) (*Record, error) {
	var rec *Record
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		rec, err = ownedFragment(ctx, tx, userID, kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListFragments returns every fragment of kind owned by userID.
func (s *Service) ListFragments(ctx context.Context, userID uuid.UUID, kind Kind) ([]Record, error) {
	var recs []Record
	err := s.withTx(ctx, func(tx Tx) error {
		var err error
		recs, err = tx.ListFragments(ctx, kind, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// Library returns every stored fragment of userID grouped by kind.
func (s *Service) Library(ctx context.Context, userID uuid.UUID) (map[Kind][]Record, error) {
	var mu sync.Mutex
	out := make(map[Kind][]Record, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			recs, err := s.ListFragments(gctx, userID, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFragment replaces the columns and the full bullet set of a fragment
// owned by userID. Bullets are stored verbatim, duplicates included.
func (s *Service) UpdateFragment(ctx context.Context, userID uuid.UUID, id uuid.UUID, rec Record) (*Record, error) {
	if rec.Name() == "" {
		return nil, &InvalidFragmentError{Kind: rec.Kind, Message: mustSchema(rec.Kind).NameColumn + " is required"}
	}

	var updated *Record
	err := s.withTx(ctx, func(tx Tx) error {
		existing, err := ownedFragment(ctx, tx, userID, rec.Kind, id)
		if err != nil {
			return err
		}

		rec.ID = existing.ID
		rec.UserID = existing.UserID
		if err := tx.UpdateFragment(ctx, &rec); err != nil {
			if errors.Is(err, ErrConflict) {
				return &ConflictError{Kind: rec.Kind, Name: rec.Name()}
			}
			return fmt.Errorf("failed to update %s fragment: %w", rec.Kind, err)
		}

		if mustSchema(rec.Kind).HasBullets() {
			if err := tx.DeleteBullets(ctx, rec.Kind, id); err != nil {
				return fmt.Errorf("failed to clear bullets: %w", err)
			}
			if err := replaceBullets(ctx, tx, rec.Kind, id, rec.Bullets); err != nil {
				return err
			}
		}

		updated, err = tx.GetFragment(ctx, rec.Kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteFragment removes a fragment owned by userID, bullets first.
func (s *Service) DeleteFragment(ctx context.Context, userID uuid.UUID, kind Kind, id uuid.UUID) error {
	return s.withTx(ctx, func(tx Tx) error {
		if _, err := ownedFragment(ctx, tx, userID, kind, id); err != nil {
			return err
		}
		if mustSchema(kind).HasBullets() {
			if err := tx.DeleteBullets(ctx, kind, id); err != nil {
				return fmt.Errorf("failed to delete bullets: %w", err)
			}
		}
		if err := tx.DeleteFragment(ctx, kind, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return &NotFoundError{Kind: kind, ID: id}
			}
			return fmt.Errorf("failed to delete %s fragment: %w", kind, err)
		}
		return nil
	})
}

// upsertFragment is the insert-or-ignore then lookup protocol.
func upsertFragment(ctx context.Context, tx Tx, userID uuid.UUID, rec *Record) (uuid.UUID, error) {
	if rec.Name() == "" {
		return uuid.Nil, nil
	}

	id, err := tx.InsertFragment(ctx, userID, rec)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrConflict) {
		return uuid.Nil, fmt.Errorf("failed to insert %s fragment: %w", rec.Kind, err)
	}

	id, err = tx.FindFragmentID(ctx, userID, rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up existing %s fragment: %w", rec.Kind, err)
	}
	return id, nil
}

func upsertBullets(ctx context.Context, tx Tx, kind Kind, fragmentID uuid.UUID, bullets []string) error {
	if !mustSchema(kind).HasBullets() {
		return nil
	}
	for _, text := range bullets {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, err := tx.AppendBullet(ctx, kind, fragmentID, text, 0); err != nil {
			return fmt.Errorf("failed to attach bullet: %w", err)
		}
	}
	return nil
}

// replaceBullets appends bullets in order, numbering repeated text so every
// entry is kept.
func replaceBullets(ctx context.Context, tx Tx, kind Kind, fragmentID uuid.UUID, bullets []string) error {
	if !mustSchema(kind).HasBullets() {
		return nil
	}
	seen := make(map[string]int, len(bullets))
	for _, text := range bullets {
		seq := seen[text]
		seen[text]++
		if _, err := tx.AppendBullet(ctx, kind, fragmentID, text, seq); err != nil {
			return fmt.Errorf("failed to attach bullet: %w", err)
		}
	}
	return nil
}

// ownedFragment loads a fragment and hides it unless userID owns it.
func ownedFragment(ctx context.Context, tx Tx, userID uuid.UUID, kind Kind, id uuid.UUID) (*Record, error) {
	rec, err := tx.GetFragment(ctx, kind, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s fragment: %w", kind, err)
	}
	if rec.UserID != userID {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	return rec, nil
}
