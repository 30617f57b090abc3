package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListExecutors(c *gin.Context) {
	recs, err := s.manager.ListExecutors(c.Request.Context(), principalFrom(c).UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executors": recs})
}

type upgradeExecutorRequest struct {
	ExecutorID string `json:"executor_id" binding:"required"`
	Reason     string `json:"reason"`
}

func (s *Server) handleUpgradeExecutor(c *gin.Context) {
	var req upgradeExecutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.manager.UpgradeExecutor(c.Request.Context(), principalFrom(c).UserID(), req.ExecutorID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListExecutorKeys(c *gin.Context) {
	keys, err := s.manager.ListExecutorKeys(c.Request.Context(), principalFrom(c).UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

type createExecutorKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleCreateExecutorKey(c *gin.Context) {
	var req createExecutorKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	secret, key, err := s.manager.CreateExecutorKey(c.Request.Context(), principalFrom(c).UserID(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": secret, "key": key})
}

func (s *Server) handleRevokeExecutorKey(c *gin.Context) {
	if err := s.manager.RevokeExecutorKey(c.Request.Context(), principalFrom(c).UserID(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
