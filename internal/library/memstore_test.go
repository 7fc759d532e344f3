package library

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memStore is an in-memory Store enforcing the same uniqueness rules as the
// PostgreSQL schema. Transactions are serialized and applied on commit.
type memStore struct {
	mu        sync.Mutex
	fragments map[uuid.UUID]Record
	bullets   map[uuid.UUID][]memBullet

	// failOn makes InsertFragment fail for records with this name.
	failOn string
}

type memBullet struct {
	text   string
	dupSeq int
}

func newMemStore() *memStore {
	return &memStore{
		fragments: make(map[uuid.UUID]Record),
		bullets:   make(map[uuid.UUID][]memBullet),
	}
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	tx := &memTx{
		store:     s,
		fragments: make(map[uuid.UUID]Record, len(s.fragments)),
		bullets:   make(map[uuid.UUID][]memBullet, len(s.bullets)),
	}
	for id, rec := range s.fragments {
		tx.fragments[id] = cloneRecord(rec)
	}
	for id, bs := range s.bullets {
		tx.bullets[id] = append([]memBullet(nil), bs...)
	}
	return tx, nil
}

func (s *memStore) count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.fragments {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

func (s *memStore) bulletTexts(id uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.bullets[id] {
		out = append(out, b.text)
	}
	return out
}

func (s *memStore) totalBullets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bs := range s.bullets {
		n += len(bs)
	}
	return n
}

type memTx struct {
	store     *memStore
	fragments map[uuid.UUID]Record
	bullets   map[uuid.UUID][]memBullet
	done      bool
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Values = make(map[string]any, len(rec.Values))
	for k, v := range rec.Values {
		out.Values[k] = v
	}
	out.Bullets = nil
	return out
}

func sameKey(a, b Record) bool {
	if a.Kind != b.Kind || a.UserID != b.UserID {
		return false
	}
	keys := mustSchema(a.Kind).KeyColumns()
	av, bv := a.ColumnValues(keys), b.ColumnValues(keys)
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}

func (tx *memTx) InsertFragment(ctx context.Context, userID uuid.UUID, rec *Record) (uuid.UUID, error) {
	if tx.store.failOn != "" && rec.Name() == tx.store.failOn {
		return uuid.Nil, errors.New("storage unavailable")
	}
	row := cloneRecord(*rec)
	row.UserID = userID
	for _, existing := range tx.fragments {
		if sameKey(existing, row) {
			return uuid.Nil, ErrConflict
		}
	}
	row.ID = uuid.New()
	tx.fragments[row.ID] = row
	return row.ID, nil
}

func (tx *memTx) FindFragmentID(ctx context.Context, userID uuid.UUID, rec *Record) (uuid.UUID, error) {
	probe := cloneRecord(*rec)
	probe.UserID = userID
	for id, existing := range tx.fragments {
		if sameKey(existing, probe) {
			return id, nil
		}
	}
	return uuid.Nil, ErrNotFound
}

func (tx *memTx) GetFragment(ctx context.Context, kind Kind, id uuid.UUID) (*Record, error) {
	row, ok := tx.fragments[id]
	if !ok || row.Kind != kind {
		return nil, ErrNotFound
	}
	out := cloneRecord(row)
	if mustSchema(kind).HasBullets() {
		out.Bullets = []string{}
		for _, b := range tx.bullets[id] {
			out.Bullets = append(out.Bullets, b.text)
		}
	}
	return &out, nil
}

func (tx *memTx) ListFragments(ctx context.Context, kind Kind, userID uuid.UUID) ([]Record, error) {
	var out []Record
	for id, row := range tx.fragments {
		if row.Kind != kind || row.UserID != userID {
			continue
		}
		rec, _ := tx.GetFragment(ctx, kind, id)
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (tx *memTx) UpdateFragment(ctx context.Context, rec *Record) error {
	row, ok := tx.fragments[rec.ID]
	if !ok {
		return ErrNotFound
	}
	next := cloneRecord(*rec)
	next.UserID = row.UserID
	for id, existing := range tx.fragments {
		if id != rec.ID && sameKey(existing, next) {
			return ErrConflict
		}
	}
	tx.fragments[rec.ID] = next
	return nil
}

func (tx *memTx) DeleteFragment(ctx context.Context, kind Kind, id uuid.UUID) error {
	if _, ok := tx.fragments[id]; !ok {
		return ErrNotFound
	}
	if len(tx.bullets[id]) > 0 {
		return errors.New("foreign key violation: bullets still reference fragment")
	}
	delete(tx.fragments, id)
	return nil
}

func (tx *memTx) AppendBullet(ctx context.Context, kind Kind, fragmentID uuid.UUID, text string, dupSeq int) (bool, error) {
	if _, ok := tx.fragments[fragmentID]; !ok {
		return false, errors.New("foreign key violation: fragment does not exist")
	}
	for _, b := range tx.bullets[fragmentID] {
		if b.text == text && b.dupSeq == dupSeq {
			return false, nil
		}
	}
	tx.bullets[fragmentID] = append(tx.bullets[fragmentID], memBullet{text: text, dupSeq: dupSeq})
	return true, nil
}

func (tx *memTx) DeleteBullets(ctx context.Context, kind Kind, fragmentID uuid.UUID) error {
	delete(tx.bullets, fragmentID)
	return nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.done {
		return errors.New("transaction already closed")
	}
	tx.store.fragments = tx.fragments
	tx.store.bullets = tx.bullets
	tx.done = true
	tx.store.mu.Unlock()
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.mu.Unlock()
	return nil
}
