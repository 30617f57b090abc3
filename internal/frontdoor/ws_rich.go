package frontdoor

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// handleRichWS serves /ws/rich/:name, bridging wsproto.BridgeMessage JSON
// frames between the browser and either the local richbridge.Bridge session
// actor or a remote executor's rich-session channel (spec.md §4.3.2, §4.7).
func (s *Server) handleRichWS(c *gin.Context) {
	name := c.Param("name")
	userID := principalFrom(c).UserID()

	sess, err := s.manager.Get(c.Request.Context(), userID, name)
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Mode != domain.ModeRich {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session is not rich-mode"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if sess.ExecutorID == domain.LocalExecutorID {
		s.serveLocalRich(c.Request.Context(), conn, name, sess.Command)
		return
	}
	s.serveRemoteRich(c.Request.Context(), conn, sess.ExecutorID, name, sess.Command)
}

func (s *Server) serveLocalRich(ctx context.Context, conn *gorillaws.Conn, name, command string) {
	client := &richbridge.Client{Outbox: make(chan richbridge.ClientEvent, 64)}
	s.rich.Attach(name, command, client)
	defer s.rich.Detach(name, client)

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
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
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
			_ = s.rich.Prompt(name, msg.Text)
		case wsproto.BridgeInterrupt:
			_ = s.rich.Interrupt(name)
		case wsproto.BridgeRestart:
			_ = s.rich.Restart(name)
		}
	}
}

// serveRemoteRich asks the owning executor to dial a fresh rich-session
// channel and splices the raw JSON messages to the browser socket, same as
// serveRemoteTerminal but for the rich-session op (spec.md §4.5.3).
func (s *Server) serveRemoteRich(ctx context.Context, conn *gorillaws.Conn, executorID, name, command string) {
	channelID := uuid.New().String()
	params := map[string]interface{}{"name": name, "channelId": channelID, "command": command}
	if err := s.registry.Send(executorID, wsproto.OpAttachRichSession, params); err != nil {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte("failed to attach rich session: "+err.Error()))
		return
	}

	exConn, err := s.registry.WaitForTerminalChannel(ctx, channelID, terminalChannelTimeout)
	if err != nil {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte("rich session channel did not connect: "+err.Error()))
		return
	}
	defer exConn.Close()

	spliceTerminal(conn, exConn)
}
