package executoragent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// handleAttach answers an attach_session/attach_rich_session request by
// dialing back the control plane's terminal-channel endpoint and splicing
// it to the local bridge named in the request (spec.md §4.5.3).
func (a *Agent) handleAttach(ctx context.Context, frame *wsproto.Frame) {
	var p struct {
		Name      string `json:"name"`
		ChannelID string `json:"channelId"`
		Cols      int    `json:"cols"`
		Rows      int    `json:"rows"`
		Command   string `json:"command"`
	}
	if err := frame.Decode(&p); err != nil {
		a.logger.Error("decoding attach params failed", zap.Error(err))
		return
	}

	conn, err := a.dialTerminalChannel(ctx, p.ChannelID)
	if err != nil {
		a.logger.Error("dialing terminal channel failed", zap.Error(err), zap.String("channel_id", p.ChannelID))
		return
	}
	defer conn.Close()

	if frame.Type == wsproto.OpAttachRichSession {
		a.serveRichAttach(conn, p.Name, p.Command)
		return
	}
	a.serveTerminalAttach(ctx, conn, p.Name, p.Cols, p.Rows)
}

func (a *Agent) dialTerminalChannel(ctx context.Context, channelID string) (*websocket.Conn, error) {
	u, err := url.Parse(a.cfg.URL)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidArgument, "parsing control plane url", err)
	}
	u.Path = "/ws/executor/terminal/" + channelID

	header := http.Header{}
	header.Set("x-executor-token", a.cfg.Token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "dialing terminal channel", err)
	}
	return conn, nil
}

func (a *Agent) serveTerminalAttach(ctx context.Context, conn *websocket.Conn, name string, cols, rows int) {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	client, err := a.terminals.AddClient(ctx, name, cols, rows)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to attach terminal: "+err.Error()))
		return
	}
	defer a.terminals.RemoveClient(name, client)

	go func() {
		for data := range client.Output {
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.TextMessage {
			var ctrl wsproto.TerminalControl
			if json.Unmarshal(data, &ctrl) == nil && ctrl.Resize != nil {
				a.terminals.Resize(name, client, ctrl.Resize[0], ctrl.Resize[1])
				continue
			}
		}
		if err := a.terminals.Write(name, data); err != nil {
			return
		}
	}
}

func (a *Agent) serveRichAttach(conn *websocket.Conn, name, command string) {
	client := &richbridge.Client{Outbox: make(chan richbridge.ClientEvent, 64)}
	a.rich.Attach(name, command, client)
	defer a.rich.Detach(name, client)

	go func() {
		for ev := range client.Outbox {
			msg := wsproto.BridgeMessage{Type: ev.Type, Message: ev.Message, ProcessAlive: ev.ProcessAlive}
			if len(ev.Event) > 0 {
				msg.Event = ev.Event
			}
			if ev.Streaming {
				streaming := true
				msg.Streaming = &streaming
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsproto.BridgeMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch msg.Type {
		case wsproto.BridgePrompt:
			_ = a.rich.Prompt(name, msg.Text)
		case wsproto.BridgeInterrupt:
			_ = a.rich.Interrupt(name)
		case wsproto.BridgeRestart:
			_ = a.rich.Restart(name)
		}
	}
}
