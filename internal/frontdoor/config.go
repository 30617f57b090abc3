package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.manager.GetConfig(c.Request.Context(), principalFrom(c).UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type setConfigRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetConfig(c *gin.Context) {
	var req setConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.manager.SetConfigValue(c.Request.Context(), principalFrom(c).UserID(), c.Param("key"), req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteConfig(c *gin.Context) {
	if err := s.manager.DeleteConfigValue(c.Request.Context(), principalFrom(c).UserID(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
