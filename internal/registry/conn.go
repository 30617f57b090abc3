// Package registry maintains the set of connected remote executors, carries
// typed RPC calls over their control channels, and rendezvous terminal
// byte-channels (spec.md §4.5, component C5).
package registry

import "github.com/fergusfinn/claude-host/pkg/wsproto"

// ControlConn is the control-channel socket for one executor. It abstracts
// *websocket.Conn so the registry's correlation logic can be exercised
// without a live network connection.
type ControlConn interface {
	WriteFrame(f *wsproto.Frame) error
	Close() error
}

// TerminalConn is a raw byte-channel socket spliced to a client
// (spec.md §4.5.3).
type TerminalConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}
