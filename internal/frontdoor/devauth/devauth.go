// Package devauth is a development-mode PrincipalExtractor that trusts an
// x-dev-user header instead of validating any real credential. It exists so
// frontdoor's routes are exercisable without a production identity provider
// wired in (spec.md §1 scopes authentication itself out of this repo).
package devauth

import (
	"net/http"

	"github.com/fergusfinn/claude-host/internal/frontdoor"
)

const (
	headerName       = "x-dev-user"
	secretHeaderName = "x-dev-auth-secret"
)

// Principal is the trivial AuthenticatedPrincipal this package produces.
type Principal struct {
	id string
}

// UserID implements frontdoor.AuthenticatedPrincipal.
func (p Principal) UserID() string { return p.id }

// Extractor implements frontdoor.PrincipalExtractor by trusting headerName.
// When Secret is set, every request must also present it verbatim via
// secretHeaderName — a minimal gate so this stub can be pointed at outside
// the laptop it was written on without widening it into a real identity
// provider (spec.md §1 leaves that out of scope).
type Extractor struct {
	Secret string
}

// Extract reads x-dev-user; a missing or empty header is an extraction
// failure, as is a missing/mismatched secret header when Secret is set.
func (e Extractor) Extract(r *http.Request) (frontdoor.AuthenticatedPrincipal, bool) {
	if e.Secret != "" && r.Header.Get(secretHeaderName) != e.Secret {
		return nil, false
	}
	id := r.Header.Get(headerName)
	if id == "" {
		return nil, false
	}
	return Principal{id: id}, true
}
