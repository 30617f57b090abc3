package frontdoor

import (
	"context"
	"sync"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
)

// fakeStore is a minimal in-memory sessionmanager.Store for frontdoor's
// route-level tests.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	config   map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*domain.Session), config: make(map[string]map[string]string)}
}

func (f *fakeStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sess
	f.sessions[sess.Name] = &cp
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, name string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[name]
	if !ok {
		return nil, domain.New(domain.ErrNotFound, "session not found: "+name)
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeStore) ListSessionsByOwner(ctx context.Context, ownerUserID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, sess := range f.sessions {
		if sess.OwnerUserID == ownerUserID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAllSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, sess := range f.sessions {
		out = append(out, *sess)
	}
	return out, nil
}

func (f *fakeStore) UpdateSessionActivity(ctx context.Context, name string, lastActivity time.Time, needsInput bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[name]
	if !ok {
		return domain.New(domain.ErrNotFound, "session not found: "+name)
	}
	sess.LastActivity = lastActivity
	sess.NeedsInput = needsInput
	return nil
}

func (f *fakeStore) UpdateSessionOwner(ctx context.Context, name, ownerUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[name]
	if !ok {
		return domain.New(domain.ErrNotFound, "session not found: "+name)
	}
	sess.OwnerUserID = ownerUserID
	return nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, name)
	return nil
}

func (f *fakeStore) UpsertExecutorRecord(ctx context.Context, rec *domain.ExecutorRecord) error {
	return nil
}

func (f *fakeStore) ListExecutorsByOwner(ctx context.Context, ownerUserID string) ([]domain.ExecutorRecord, error) {
	return nil, nil
}

func (f *fakeStore) CreateExecutorKey(ctx context.Context, key *domain.ExecutorKey) error { return nil }

func (f *fakeStore) ListExecutorKeys(ctx context.Context, ownerUserID string) ([]domain.ExecutorKey, error) {
	return nil, nil
}

func (f *fakeStore) FindExecutorKeyByHash(ctx context.Context, hash string) (*domain.ExecutorKey, error) {
	return nil, domain.New(domain.ErrNotFound, "no executor key")
}

func (f *fakeStore) TouchExecutorKey(ctx context.Context, id string, when time.Time) error { return nil }

func (f *fakeStore) RevokeExecutorKey(ctx context.Context, id string) error { return nil }

func (f *fakeStore) GetConfig(ctx context.Context, ownerUserID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.config[ownerUserID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SetConfigValue(ctx context.Context, ownerUserID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.config[ownerUserID] == nil {
		f.config[ownerUserID] = make(map[string]string)
	}
	f.config[ownerUserID][key] = value
	return nil
}

func (f *fakeStore) DeleteConfigValue(ctx context.Context, ownerUserID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.config[ownerUserID], key)
	return nil
}

// fakeExecutor is a no-op executor.Interface; frontdoor's WS routes only
// need the session row, not a live executor op.
type fakeExecutor struct{}

func (fakeExecutor) CreateSession(ctx context.Context, name, command, cwd string) error     { return nil }
func (fakeExecutor) CreateRichSession(ctx context.Context, name, command, cwd string) error { return nil }
func (fakeExecutor) CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error {
	return nil
}
func (fakeExecutor) DeleteSession(ctx context.Context, name string) error     { return nil }
func (fakeExecutor) DeleteRichSession(ctx context.Context, name string) error { return nil }
func (fakeExecutor) Fork(ctx context.Context, params executor.ForkParams) error { return nil }
func (fakeExecutor) Cwd(ctx context.Context, name string) (string, error)       { return "", nil }
func (fakeExecutor) ListSessions(ctx context.Context) ([]executor.WindowInfo, error) {
	return nil, nil
}
func (fakeExecutor) SnapshotSession(ctx context.Context, name string) (string, error) { return "", nil }
func (fakeExecutor) SnapshotRichSession(ctx context.Context, name string) (string, error) {
	return "", nil
}
func (fakeExecutor) Summarize(ctx context.Context, name string) (string, error) { return "", nil }
func (fakeExecutor) Analyze(ctx context.Context, name string) (executor.ProbeResult, error) {
	return executor.ProbeResult{}, nil
}

// fakeResolver always resolves to the same fakeExecutor for the local id.
type fakeResolver struct{}

func (fakeResolver) Resolve(executorID string) (executor.Interface, bool) {
	if executorID == "" || executorID == domain.LocalExecutorID {
		return fakeExecutor{}, true
	}
	return nil, false
}
