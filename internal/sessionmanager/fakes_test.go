package sessionmanager

import (
	"context"
	"sync"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	execRecs map[string]domain.ExecutorRecord
	keys     map[string]domain.ExecutorKey
	config   map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]domain.Session),
		execRecs: make(map[string]domain.ExecutorRecord),
		keys:     make(map[string]domain.ExecutorKey),
		config:   make(map[string]map[string]string),
	}
}

func (f *fakeStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.Name] = *sess
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, name string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[name]
	if !ok {
		return nil, domain.New(domain.ErrNotFound, "not found")
	}
	return &s, nil
}

func (f *fakeStore) ListSessionsByOwner(ctx context.Context, ownerUserID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		if s.OwnerUserID == ownerUserID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAllSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) UpdateSessionActivity(ctx context.Context, name string, lastActivity time.Time, needsInput bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[name]
	if !ok {
		return domain.New(domain.ErrNotFound, "not found")
	}
	s.LastActivity = lastActivity
	s.NeedsInput = needsInput
	f.sessions[name] = s
	return nil
}

func (f *fakeStore) UpdateSessionOwner(ctx context.Context, name, ownerUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[name]
	if !ok {
		return domain.New(domain.ErrNotFound, "not found")
	}
	s.OwnerUserID = ownerUserID
	f.sessions[name] = s
	return nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, name)
	return nil
}

func (f *fakeStore) UpsertExecutorRecord(ctx context.Context, rec *domain.ExecutorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execRecs[rec.ID] = *rec
	return nil
}

func (f *fakeStore) ListExecutorsByOwner(ctx context.Context, ownerUserID string) ([]domain.ExecutorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExecutorRecord
	for _, r := range f.execRecs {
		if r.OwnerUserID == ownerUserID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateExecutorKey(ctx context.Context, key *domain.ExecutorKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key.ID] = *key
	return nil
}

func (f *fakeStore) ListExecutorKeys(ctx context.Context, ownerUserID string) ([]domain.ExecutorKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExecutorKey
	for _, k := range f.keys {
		if k.OwnerUserID == ownerUserID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) FindExecutorKeyByHash(ctx context.Context, hash string) (*domain.ExecutorKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.KeyHash == hash && !k.Revoked {
			kk := k
			return &kk, nil
		}
	}
	return nil, domain.New(domain.ErrNotFound, "not found")
}

func (f *fakeStore) TouchExecutorKey(ctx context.Context, id string, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok {
		return domain.New(domain.ErrNotFound, "not found")
	}
	k.LastUsed = &when
	f.keys[id] = k
	return nil
}

func (f *fakeStore) RevokeExecutorKey(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok {
		return domain.New(domain.ErrNotFound, "not found")
	}
	k.Revoked = true
	f.keys[id] = k
	return nil
}

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

type fakeExecutor struct {
	mu            sync.Mutex
	created       []string
	deleted       []string
	forked        []executor.ForkParams
	analyzeResult executor.ProbeResult
}

func (f *fakeExecutor) CreateSession(ctx context.Context, name, command, cwd string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}
func (f *fakeExecutor) CreateRichSession(ctx context.Context, name, command, cwd string) error {
	return f.CreateSession(ctx, name, command, cwd)
}
func (f *fakeExecutor) CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error {
	return f.CreateSession(ctx, name, command, cwd)
}
func (f *fakeExecutor) DeleteSession(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}
func (f *fakeExecutor) DeleteRichSession(ctx context.Context, name string) error {
	return f.DeleteSession(ctx, name)
}
func (f *fakeExecutor) Fork(ctx context.Context, params executor.ForkParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forked = append(f.forked, params)
	return nil
}
func (f *fakeExecutor) Cwd(ctx context.Context, name string) (string, error) {
	return "/tmp/" + name, nil
}
func (f *fakeExecutor) ListSessions(ctx context.Context) ([]executor.WindowInfo, error) {
	return nil, nil
}
func (f *fakeExecutor) SnapshotSession(ctx context.Context, name string) (string, error) {
	return "snapshot:" + name, nil
}
func (f *fakeExecutor) SnapshotRichSession(ctx context.Context, name string) (string, error) {
	return "rich-snapshot:" + name, nil
}
func (f *fakeExecutor) Summarize(ctx context.Context, name string) (string, error) {
	return "summary:" + name, nil
}
func (f *fakeExecutor) Analyze(ctx context.Context, name string) (executor.ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analyzeResult != (executor.ProbeResult{}) {
		return f.analyzeResult, nil
	}
	return executor.ProbeResult{Description: "idle"}, nil
}

type fakeResolver struct {
	iface executor.Interface
	ok    bool
}

func (r *fakeResolver) Resolve(executorID string) (executor.Interface, bool) {
	if !r.ok {
		return nil, false
	}
	return r.iface, true
}
