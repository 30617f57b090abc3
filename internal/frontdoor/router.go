package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/internal/sessionmanager"
	"github.com/fergusfinn/claude-host/internal/terminalbridge"
)

// Server wires the HTTP routes and WebSocket upgrades over SessionManager
// and the two attach bridges (spec.md §4.7).
type Server struct {
	manager    *sessionmanager.Manager
	terminals  *terminalbridge.Bridge
	rich       *richbridge.Bridge
	registry   *registry.Registry
	principals PrincipalExtractor
	logger     *logger.Logger
}

// New creates a Server. Executor-facing WebSocket upgrades authenticate via
// the x-executor-token header, validated against the executor-key store
// through manager.ValidateExecutorToken — the same `chk_`-prefixed secret
// minted by createExecutorKey and passed to `claude-host executor --token`
// (spec.md §4.7, §6 "Executor token format"); a missing or invalid header
// refuses the upgrade.
func New(
	manager *sessionmanager.Manager,
	terminals *terminalbridge.Bridge,
	rich *richbridge.Bridge,
	reg *registry.Registry,
	principals PrincipalExtractor,
	log *logger.Logger,
) *Server {
	return &Server{
		manager:    manager,
		terminals:  terminals,
		rich:       rich,
		registry:   reg,
		principals: principals,
		logger:     log.WithFields(zap.String("component", "frontdoor")),
	}
}

// Routes registers every HTTP and WebSocket route onto engine.
func (s *Server) Routes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.Use(s.requirePrincipal())
	{
		api.GET("/sessions", s.handleListSessions)
		api.POST("/sessions", s.handleCreateSession)
		api.DELETE("/sessions/:name", s.handleDeleteSession)
		api.POST("/sessions/fork", s.handleForkSession)
		api.POST("/sessions/job", s.handleCreateJob)
		api.GET("/sessions/:name/snapshot", s.handleSnapshot)
		api.GET("/sessions/:name/summarize", s.handleSummarize)

		api.GET("/config", s.handleGetConfig)
		api.PUT("/config/:key", s.handleSetConfig)
		api.DELETE("/config/:key", s.handleDeleteConfig)

		api.GET("/executors", s.handleListExecutors)
		api.POST("/executors/upgrade", s.handleUpgradeExecutor)

		api.GET("/executor-keys", s.handleListExecutorKeys)
		api.POST("/executor-keys", s.handleCreateExecutorKey)
		api.DELETE("/executor-keys/:id", s.handleRevokeExecutorKey)
	}

	engine.GET("/ws/sessions/:name", s.requirePrincipalWS(), s.handleTerminalWS)
	engine.GET("/ws/rich/:name", s.requirePrincipalWS(), s.handleRichWS)

	engine.GET("/ws/executor/control", s.handleExecutorControlWS)
	engine.GET("/ws/executor/terminal/:channelId", s.handleExecutorTerminalWS)
}

const principalContextKey = "frontdoor.principal"

// requirePrincipal rejects unauthenticated requests on the /api group.
func (s *Server) requirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := s.principals.Extract(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// requirePrincipalWS is the same check for WS upgrade routes, which are not
// under the /api group.
func (s *Server) requirePrincipalWS() gin.HandlerFunc {
	return s.requirePrincipal()
}

func principalFrom(c *gin.Context) AuthenticatedPrincipal {
	v, _ := c.Get(principalContextKey)
	p, _ := v.(AuthenticatedPrincipal)
	return p
}
