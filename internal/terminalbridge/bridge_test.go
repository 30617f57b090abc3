package terminalbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShare_MinDimensionsLocked_SingleClient(t *testing.T) {
	s := &share{clients: make(map[*Client]struct{})}
	c := &Client{cols: 120, rows: 40}
	s.clients[c] = struct{}{}

	cols, rows := s.minDimensionsLocked()
	assert.Equal(t, 120, cols)
	assert.Equal(t, 40, rows)
}

func TestShare_MinDimensionsLocked_MultipleClientsTakesMinimum(t *testing.T) {
	s := &share{clients: make(map[*Client]struct{})}
	s.clients[&Client{cols: 120, rows: 40}] = struct{}{}
	s.clients[&Client{cols: 80, rows: 24}] = struct{}{}
	s.clients[&Client{cols: 200, rows: 10}] = struct{}{}

	cols, rows := s.minDimensionsLocked()
	assert.Equal(t, 80, cols)
	assert.Equal(t, 10, rows)
}

func TestShare_MinDimensionsLocked_NoClients(t *testing.T) {
	s := &share{clients: make(map[*Client]struct{})}
	cols, rows := s.minDimensionsLocked()
	assert.Equal(t, 0, cols)
	assert.Equal(t, 0, rows)
}

func TestBridge_WriteToUnknownSessionFails(t *testing.T) {
	b := &Bridge{shares: make(map[string]*share)}
	err := b.Write("no-such-session", []byte("hi"))
	assert.Error(t, err)
}

func TestBridge_RemoveClientOnUnknownSessionIsNoop(t *testing.T) {
	b := &Bridge{shares: make(map[string]*share)}
	assert.NotPanics(t, func() {
		b.RemoveClient("no-such-session", &Client{Output: make(chan []byte)})
	})
}
