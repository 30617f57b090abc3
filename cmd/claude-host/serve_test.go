package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProductionMode(t *testing.T) {
	t.Setenv("CLAUDE_HOST_ENV", "")
	assert.False(t, isProductionMode())

	t.Setenv("CLAUDE_HOST_ENV", "production")
	assert.True(t, isProductionMode())

	t.Setenv("CLAUDE_HOST_ENV", "prod")
	assert.True(t, isProductionMode())

	t.Setenv("CLAUDE_HOST_ENV", "development")
	assert.False(t, isProductionMode())
}

func TestMain_NoArgsDoesNotPanic(t *testing.T) {
	// usage() only writes to stderr; with stderr redirected to a pipe,
	// confirm it doesn't panic when called directly (main() itself calls
	// os.Exit, so it is not unit-tested here).
	old := os.Stderr
	defer func() { os.Stderr = old }()
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stderr = w
	usage()
	w.Close()
	os.Stderr = old
	r.Close()
}
