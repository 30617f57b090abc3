package richbridge

import "context"

// Store is the durable persistence seam richbridge uses for rich-session
// state (spec.md §4.3.4). internal/store provides the sqlite-backed
// implementation; tests use an in-memory fake.
type Store interface {
	LoadRichSession(ctx context.Context, name string) (*PersistedState, error)
	SaveRichSession(ctx context.Context, name string, state *PersistedState) error
	DeleteRichSession(ctx context.Context, name string) error
}
