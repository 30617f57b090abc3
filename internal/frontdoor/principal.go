// Package frontdoor is the HTTP/WS surface over SessionManager and the
// terminal/rich bridges (spec.md §4.7, component C7).
package frontdoor

import "net/http"

// AuthenticatedPrincipal is the identity frontdoor extracts from a request
// before delegating to SessionManager. The concrete authentication provider
// is out of scope (spec.md §1); routes only depend on this interface.
type AuthenticatedPrincipal interface {
	UserID() string
}

// PrincipalExtractor resolves the caller's principal from an HTTP request,
// or reports failure so the route can respond 401.
type PrincipalExtractor interface {
	Extract(r *http.Request) (AuthenticatedPrincipal, bool)
}
