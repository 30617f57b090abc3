package frontdoor

import (
	gorillaws "github.com/gorilla/websocket"

	"github.com/fergusfinn/claude-host/internal/registry"
)

// spliceTerminal copies messages in both directions between a browser
// WebSocket and a remote executor's terminal channel until either side
// closes (spec.md §4.5.3).
func spliceTerminal(browser *gorillaws.Conn, exec registry.TerminalConn) {
	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			mt, data, err := exec.ReadMessage()
			if err != nil {
				return
			}
			if err := browser.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			mt, data, err := browser.ReadMessage()
			if err != nil {
				return
			}
			if err := exec.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}()

	<-done
}
