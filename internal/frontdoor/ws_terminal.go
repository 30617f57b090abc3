package frontdoor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

const terminalChannelTimeout = 10 * time.Second

// handleTerminalWS serves /ws/sessions/:name, splicing raw pty bytes between
// the browser and either the local terminalbridge.Bridge share or a remote
// executor's terminal channel (spec.md §4.2, §4.5.3, §4.7).
func (s *Server) handleTerminalWS(c *gin.Context) {
	name := c.Param("name")
	userID := principalFrom(c).UserID()

	sess, err := s.manager.Get(c.Request.Context(), userID, name)
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Mode == domain.ModeRich {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session is rich-mode, use /ws/rich/" + name})
		return
	}

	cols := queryDimension(c, "cols", defaultCols)
	rows := queryDimension(c, "rows", defaultRows)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if sess.ExecutorID == domain.LocalExecutorID {
		s.serveLocalTerminal(c.Request.Context(), conn, name, cols, rows)
		return
	}
	s.serveRemoteTerminal(c.Request.Context(), conn, sess.ExecutorID, name, cols, rows)
}

func (s *Server) serveLocalTerminal(ctx context.Context, conn *gorillaws.Conn, name string, cols, rows int) {
	client, err := s.terminals.AddClient(ctx, name, cols, rows)
	if err != nil {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte("failed to attach terminal: "+err.Error()))
		return
	}
	defer s.terminals.RemoveClient(name, client)

	go func() {
		for data := range client.Output {
			if err := conn.WriteMessage(gorillaws.BinaryMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == gorillaws.TextMessage {
			var ctrl wsproto.TerminalControl
			if json.Unmarshal(data, &ctrl) == nil && ctrl.Resize != nil {
				s.terminals.Resize(name, client, ctrl.Resize[0], ctrl.Resize[1])
				continue
			}
		}
		if err := s.terminals.Write(name, data); err != nil {
			return
		}
	}
}

// serveRemoteTerminal asks the owning executor to dial a fresh terminal
// channel and splices it to the browser socket once it rendezvous through
// the registry (spec.md §4.5.3).
func (s *Server) serveRemoteTerminal(ctx context.Context, conn *gorillaws.Conn, executorID, name string, cols, rows int) {
	channelID := uuid.New().String()
	params := map[string]interface{}{"name": name, "channelId": channelID, "cols": cols, "rows": rows}
	if err := s.registry.Send(executorID, wsproto.OpAttachSession, params); err != nil {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte("failed to attach terminal: "+err.Error()))
		return
	}

	exConn, err := s.registry.WaitForTerminalChannel(ctx, channelID, terminalChannelTimeout)
	if err != nil {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte("terminal channel did not connect: "+err.Error()))
		return
	}
	defer exConn.Close()

	spliceTerminal(conn, exConn)
}
