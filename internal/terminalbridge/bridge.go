// Package terminalbridge attaches a single pseudo-terminal to a named
// TmuxRunner window and shares it across multiple client sockets
// (spec.md §4.2, component C2). Multiplexer windows are already shared
// state on the executor; this bridge exists only so that N browser
// viewports don't fight over pty geometry.
package terminalbridge

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"go.uber.org/zap"
)

// AttachCommandFunc returns the argv that attaches to a named window, as
// produced by tmuxrunner.Runner.AttachCommand.
type AttachCommandFunc func(name string) []string

// Bridge manages the set of terminal shares, one per session name.
type Bridge struct {
	attachCommand AttachCommandFunc
	logger        *logger.Logger

	mu     sync.Mutex
	shares map[string]*share
}

// New creates a Bridge. attachCommand supplies the pty-exec argv for a given
// window name (ordinarily tmuxrunner.Runner.AttachCommand).
func New(attachCommand AttachCommandFunc, log *logger.Logger) *Bridge {
	return &Bridge{
		attachCommand: attachCommand,
		logger:        log.WithFields(zap.String("component", "terminalbridge")),
		shares:        make(map[string]*share),
	}
}

// Client is a single browser-side viewport sharing a pty.
type Client struct {
	Output chan []byte
	cols   int
	rows   int
}

// share is the single-owner pty and its set of clients for one session name.
type share struct {
	name string
	pty  *os.File

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// AddClient attaches a client at cols×rows, opening the pty on first client
// for this session name and resizing to the componentwise minimum across the
// set on every subsequent join (spec.md §4.2).
func (b *Bridge) AddClient(ctx context.Context, name string, cols, rows int) (*Client, error) {
	b.mu.Lock()
	s, exists := b.shares[name]
	if !exists {
		var err error
		s, err = b.openShare(name, cols, rows)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.shares[name] = s
	}
	b.mu.Unlock()

	client := &Client{Output: make(chan []byte, 64), cols: cols, rows: rows}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	minCols, minRows := s.minDimensionsLocked()
	s.mu.Unlock()

	if exists {
		s.resize(minCols, minRows)
	}
	return client, nil
}

func (b *Bridge) openShare(name string, cols, rows int) (*share, error) {
	argv := b.attachCommand(name)
	cmd := exec.Command(argv[0], argv[1:]...)
	f, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, domain.Wrap(domain.ErrSpawnFailure, "opening terminal pty", err)
	}

	s := &share{
		name:    name,
		pty:     f,
		clients: make(map[*Client]struct{}),
	}
	go b.readLoop(s)
	return s, nil
}

// readLoop copies pty output to every attached client until the pty exits,
// at which point every client socket is closed and the share is discarded
// (spec.md §4.2 "If the pty exits").
func (b *Bridge) readLoop(s *share) {
	buf := make([]byte, 4096)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.broadcast(data)
		}
		if err != nil {
			if err != io.EOF {
				b.logger.Debug("terminal pty read error", zap.String("session", s.name), zap.Error(err))
			}
			break
		}
	}
	b.discardShare(s)
}

func (s *share) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.Output <- data:
		default:
		}
	}
}

func (s *share) minDimensionsLocked() (int, int) {
	minCols, minRows := 0, 0
	for c := range s.clients {
		if minCols == 0 || c.cols < minCols {
			minCols = c.cols
		}
		if minRows == 0 || c.rows < minRows {
			minRows = c.rows
		}
	}
	return minCols, minRows
}

func (s *share) resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	_ = pty.Setsize(s.pty, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// Write sends client input unchanged to the pty.
func (b *Bridge) Write(name string, data []byte) error {
	b.mu.Lock()
	s, ok := b.shares[name]
	b.mu.Unlock()
	if !ok {
		return domain.New(domain.ErrNotFound, "no terminal share for session: "+name)
	}
	_, err := s.pty.Write(data)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "writing to terminal pty", err)
	}
	return nil
}

// Resize updates one client's requested viewport and recomputes and applies
// the componentwise minimum across the set (spec.md §4.2).
func (b *Bridge) Resize(name string, client *Client, cols, rows int) {
	b.mu.Lock()
	s, ok := b.shares[name]
	b.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	client.cols, client.rows = cols, rows
	minCols, minRows := s.minDimensionsLocked()
	s.mu.Unlock()
	s.resize(minCols, minRows)
}

// RemoveClient detaches a client. If the set becomes empty the pty is killed
// and the share discarded; otherwise the minimum is recomputed and applied
// (spec.md §4.2 "On client disconnect").
func (b *Bridge) RemoveClient(name string, client *Client) {
	b.mu.Lock()
	s, ok := b.shares[name]
	b.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.clients, client)
	empty := len(s.clients) == 0
	minCols, minRows := s.minDimensionsLocked()
	s.mu.Unlock()

	close(client.Output)

	if empty {
		_ = s.pty.Close()
		b.discardShare(s)
		return
	}
	s.resize(minCols, minRows)
}

func (b *Bridge) discardShare(s *share) {
	b.mu.Lock()
	if cur, ok := b.shares[s.name]; ok && cur == s {
		delete(b.shares, s.name)
	}
	b.mu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		close(c.Output)
	}
}
