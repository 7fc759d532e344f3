package library

import (
	"context"

	"github.com/google/uuid"
)

// Store opens transactions against fragment storage.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the set of storage primitives the service composes. Implementations
// return ErrConflict and ErrNotFound so the service can tell those cases apart
// from storage failures.
type Tx interface {
	// InsertFragment inserts rec for userID unless its natural key already
	// exists, in which case nothing is written and ErrConflict is returned.
	InsertFragment(ctx context.Context, userID uuid.UUID, rec *Record) (uuid.UUID, error)
	// FindFragmentID looks a fragment up by its natural key.
	FindFragmentID(ctx context.Context, userID uuid.UUID, rec *Record) (uuid.UUID, error)
	// GetFragment loads a fragment and its bullets regardless of owner.
	GetFragment(ctx context.Context, kind Kind, id uuid.UUID) (*Record, error)
	// ListFragments loads every fragment of kind owned by userID, bullets included.
	ListFragments(ctx context.Context, kind Kind, userID uuid.UUID) ([]Record, error)
	// UpdateFragment overwrites the columns of an existing fragment.
	// A collision with another fragment's natural key returns ErrConflict.
	UpdateFragment(ctx context.Context, rec *Record) error
	// DeleteFragment removes a fragment row. Bullets must be deleted first.
	DeleteFragment(ctx context.Context, kind Kind, id uuid.UUID) error

	// AppendBullet adds text after the fragment's last bullet unless
	// (text, dupSeq) is already attached. It reports whether a row was written.
	AppendBullet(ctx context.Context, kind Kind, fragmentID uuid.UUID, text string, dupSeq int) (bool, error)
	// DeleteBullets removes every bullet of a fragment.
	DeleteBullets(ctx context.Context, kind Kind, fragmentID uuid.UUID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
