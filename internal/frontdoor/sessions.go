package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fergusfinn/claude-host/internal/domain"
)

type createSessionRequest struct {
	Description string      `json:"description"`
	Command     string      `json:"command" binding:"required"`
	Mode        domain.Mode `json:"mode"`
	ExecutorID  string      `json:"executor_id"`
	Cwd         string      `json:"cwd"`
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.manager.List(c.Request.Context(), principalFrom(c).UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode == "" {
		req.Mode = domain.ModeTerminal
	}
	sess, err := s.manager.Create(c.Request.Context(), principalFrom(c).UserID(), req.Description, req.Command, req.Mode, req.ExecutorID, req.Cwd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type createJobRequest struct {
	Prompt        string `json:"prompt" binding:"required"`
	MaxIterations int    `json:"max_iterations" binding:"required"`
	Command       string `json:"command" binding:"required"`
	PromptFlag    string `json:"prompt_flag"`
	ExecutorID    string `json:"executor_id"`
	Cwd           string `json:"cwd"`
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.manager.CreateJob(c.Request.Context(), principalFrom(c).UserID(), req.Prompt, req.MaxIterations, req.Command, req.PromptFlag, req.ExecutorID, req.Cwd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type forkSessionRequest struct {
	SourceName string            `json:"source_name" binding:"required"`
	ForkHooks  map[string]string `json:"fork_hooks"`
}

func (s *Server) handleForkSession(c *gin.Context) {
	var req forkSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.manager.Fork(c.Request.Context(), principalFrom(c).UserID(), req.SourceName, req.ForkHooks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	name := c.Param("name")
	if err := s.manager.Delete(c.Request.Context(), principalFrom(c).UserID(), name); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.manager.Snapshot(c.Request.Context(), principalFrom(c).UserID(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snap})
}

func (s *Server) handleSummarize(c *gin.Context) {
	summary, err := s.manager.Summarize(c.Request.Context(), principalFrom(c).UserID(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
