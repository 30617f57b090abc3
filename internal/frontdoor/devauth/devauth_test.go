package devauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_NoSecretConfigured(t *testing.T) {
	e := Extractor{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-dev-user", "alice")

	p, ok := e.Extract(req)
	assert.True(t, ok)
	assert.Equal(t, "alice", p.UserID())
}

func TestExtract_MissingUserHeader(t *testing.T) {
	e := Extractor{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := e.Extract(req)
	assert.False(t, ok)
}

func TestExtract_SecretConfigured_RequiresMatchingHeader(t *testing.T) {
	e := Extractor{Secret: "topsecret"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-dev-user", "alice")
	_, ok := e.Extract(req)
	assert.False(t, ok, "missing secret header should fail")

	req.Header.Set("x-dev-auth-secret", "wrong")
	_, ok = e.Extract(req)
	assert.False(t, ok, "mismatched secret header should fail")

	req.Header.Set("x-dev-auth-secret", "topsecret")
	p, ok := e.Extract(req)
	assert.True(t, ok)
	assert.Equal(t, "alice", p.UserID())
}
