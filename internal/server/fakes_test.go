package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-typesetter/internal/config"
	"github.com/jonathan/resume-typesetter/internal/db"
	"github.com/jonathan/resume-typesetter/internal/library"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/resume"
	"github.com/jonathan/resume-typesetter/internal/storage"
	"github.com/jonathan/resume-typesetter/internal/types"
	"github.com/stretchr/testify/require"
)

// fakeUsers is an in-memory DBClient.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*db.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]*db.User)}
}

func (f *fakeUsers) byEmail(email string) *db.User {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) CreateUser(_ context.Context, name, email, phone, passwordHash string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byEmail(email) != nil {
		return uuid.Nil, db.ErrEmailTaken
	}
	now := time.Now()
	u := &db.User{
		ID: uuid.New(), Name: name, Email: strings.ToLower(email), Phone: phone,
		PasswordHash: passwordHash, PasswordSet: passwordHash != "", CreatedAt: now, UpdatedAt: now,
	}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeUsers) CheckEmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail(email) != nil, nil
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byEmail(email)
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errors.New("no rows")
	}
	u.PasswordHash, u.PasswordSet = passwordHash, true
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, p db.ProfileUpdate) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	u.Name, u.Phone, u.Location = p.Name, p.Phone, p.Location
	u.LinkedIn, u.GitHub, u.Website = p.LinkedIn, p.GitHub, p.Website
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	delete(f.users, id)
	return ok, nil
}

// fakeLibrary keeps fragments in memory with the same ownership and
// conflict rules as library.Service.
type fakeLibrary struct {
	mu        sync.Mutex
	records   map[uuid.UUID]library.Record
	submitted []*types.Submission
	saveErr   error
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{records: make(map[uuid.UUID]library.Record)}
}

func (f *fakeLibrary) SaveSubmission(_ context.Context, _ uuid.UUID, sub *types.Submission) (library.SaveReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, sub)
	if f.saveErr != nil {
		return library.SaveReport{Saved: map[library.Kind]int{}, Failed: 1}, f.saveErr
	}
	report := library.SaveReport{Saved: map[library.Kind]int{}}
	for _, rec := range library.SubmissionRecords(sub) {
		if rec.Name() == "" {
			report.Skipped++
			continue
		}
		report.Saved[rec.Kind]++
	}
	return report, nil
}

func (f *fakeLibrary) CreateFragment(_ context.Context, userID uuid.UUID, rec library.Record) (*library.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.UserID == userID && existing.Kind == rec.Kind && existing.Name() == rec.Name() {
			return nil, &library.ConflictError{Kind: rec.Kind, Name: rec.Name()}
		}
	}
	rec.ID, rec.UserID = uuid.New(), userID
	f.records[rec.ID] = rec
	return &rec, nil
}

func (f *fakeLibrary) owned(userID uuid.UUID, kind library.Kind, id uuid.UUID) (library.Record, error) {
	rec, ok := f.records[id]
	if !ok || rec.UserID != userID || rec.Kind != kind {
		return library.Record{}, &library.NotFoundError{Kind: kind, ID: id}
	}
	return rec, nil
}

func (f *fakeLibrary) GetFragment(_ context.Context, userID uuid.UUID, kind library.Kind, id uuid.UUID) (*library.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.owned(userID, kind, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (f *fakeLibrary) ListFragments(_ context.Context, userID uuid.UUID, kind library.Kind) ([]library.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []library.Record{}
	for _, rec := range f.records {
		if rec.UserID == userID && rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLibrary) Library(ctx context.Context, userID uuid.UUID) (map[library.Kind][]library.Record, error) {
	out := make(map[library.Kind][]library.Record)
	for _, kind := range library.Kinds() {
		recs, _ := f.ListFragments(ctx, userID, kind)
		out[kind] = recs
	}
	return out, nil
}

func (f *fakeLibrary) UpdateFragment(_ context.Context, userID uuid.UUID, id uuid.UUID, rec library.Record) (*library.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(userID, rec.Kind, id); err != nil {
		return nil, err
	}
	rec.ID, rec.UserID = id, userID
	f.records[id] = rec
	return &rec, nil
}

func (f *fakeLibrary) DeleteFragment(_ context.Context, userID uuid.UUID, kind library.Kind, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(userID, kind, id); err != nil {
		return err
	}
	delete(f.records, id)
	return nil
}

// fakeRenderer returns pdf or err and remembers the last document.
type fakeRenderer struct {
	mu   sync.Mutex
	pdf  []byte
	err  error
	docs []*rendering.Document
}

func (f *fakeRenderer) Compile(_ context.Context, doc *rendering.Document) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	stored  map[uuid.UUID][]string
	deleted []uuid.UUID
}

func (f *fakeArchive) Store(_ context.Context, userID uuid.UUID, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = make(map[uuid.UUID][]string)
	}
	key := "resumes/" + userID.String() + "/test.pdf"
	f.stored[userID] = append(f.stored[userID], key)
	return key, nil
}

func (f *fakeArchive) List(_ context.Context, userID uuid.UUID, _ int) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []storage.Object{}
	for _, key := range f.stored[userID] {
		out = append(out, storage.Object{Key: key, Size: 4})
	}
	return out, nil
}

func (f *fakeArchive) DeleteUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, userID)
	delete(f.stored, userID)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

const testTemplateSource = `#let name = {{ name }}
#let contact = {{ contact }}
#let skills = {{ skills }}
`

// testEnv is a server over in-memory fakes.
type testEnv struct {
	server   *Server
	handler  http.Handler
	users    *fakeUsers
	library  *fakeLibrary
	renderer *fakeRenderer
	deps     Deps
	logs     *bytes.Buffer
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, CORSOrigin: "*"},
		Render: config.RenderConfig{TemplateDir: "templates", Timeout: 5 * time.Second},
		Auth: config.AuthConfig{
			JWTSecret:          testJWTSecret,
			JWTExpirationHours: 24,
			BcryptCost:         10,
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, rendering.DefaultTemplate), []byte(testTemplateSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compact.typ"), []byte("{{ name }}"), 0o644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	env := &testEnv{
		users:    newFakeUsers(),
		library:  newFakeLibrary(),
		renderer: &fakeRenderer{pdf: []byte("%PDF-1.7 test")},
		logs:     &logs,
	}
	cfg := testConfig()
	env.deps = Deps{
		Users:     env.users,
		Library:   env.library,
		Assembler: resume.NewAssembler(rendering.NewTemplateSet(dir), "", logger),
		Renderer:  env.renderer,
	}
	for _, m := range mutate {
		m(cfg, &env.deps)
	}

	s, err := New(cfg, env.deps, logger)
	require.NoError(t, err)
	env.server = s
	env.handler = s.Handler()
	return env
}

// createUser stores a user with password "password123" and returns its id and a token.
func (e *testEnv) createUser(t *testing.T, name, email string) (uuid.UUID, string) {
	t.Helper()
	hash, err := e.server.userService.passwordConfig.HashPassword("password123")
	require.NoError(t, err)
	id, err := e.users.CreateUser(context.Background(), name, email, "", hash)
	require.NoError(t, err)
	token, err := e.server.jwtService.GenerateToken(id)
	require.NoError(t, err)
	return id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
