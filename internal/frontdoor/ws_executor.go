package frontdoor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// wsControlConn adapts a *websocket.Conn to registry.ControlConn by
// JSON-marshalling each outgoing frame; WriteFrame calls are serialized
// since gorilla/websocket forbids concurrent writers on one connection.
type wsControlConn struct {
	conn *gorillaws.Conn
	mu   sync.Mutex
}

func (w *wsControlConn) WriteFrame(f *wsproto.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(gorillaws.TextMessage, data)
}

func (w *wsControlConn) Close() error { return w.conn.Close() }

// handleExecutorControlWS serves /ws/executor/control: it authenticates the
// x-executor-token header, requires a register frame first, registers the
// connection with the registry, and then pumps frames to HandleFrame until
// the socket closes (spec.md §4.5.1, §4.7).
func (s *Server) handleExecutorControlWS(c *gin.Context) {
	token := c.GetHeader("x-executor-token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing x-executor-token"})
		return
	}
	key, err := s.manager.ValidateExecutorToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid executor token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var register wsproto.Frame
	if json.Unmarshal(data, &register) != nil || register.Type != wsproto.FrameRegister {
		_ = conn.WriteMessage(gorillaws.TextMessage, []byte(`{"error":"first frame must be register"}`))
		return
	}

	adapter := &wsControlConn{conn: conn}
	s.registry.Register(adapter, register.ExecutorID, register.Name, register.Labels, register.Version, key.OwnerUserID)
	defer s.registry.Disconnect(register.ExecutorID, "control channel closed")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame wsproto.Frame
		if json.Unmarshal(data, &frame) != nil {
			continue
		}
		s.registry.HandleFrame(register.ExecutorID, &frame)
	}
}

// handleExecutorTerminalWS serves /ws/executor/terminal/:channelId: the
// executor dials back with the channel id it was handed in an attach RPC,
// and the connection is handed to whichever browser socket is waiting on it
// (spec.md §4.5.3). A dial with no matching pending channel is refused with
// close code 1008.
func (s *Server) handleExecutorTerminalWS(c *gin.Context) {
	channelID := c.Param("channelId")

	token := c.GetHeader("x-executor-token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing x-executor-token"})
		return
	}
	if _, err := s.manager.ValidateExecutorToken(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid executor token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if err := s.registry.ResolveTerminalChannel(channelID, conn); err != nil {
		_ = conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(1008, "no pending terminal channel"))
		_ = conn.Close()
		return
	}
}
