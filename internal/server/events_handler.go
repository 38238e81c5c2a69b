package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListEvents(c *gin.Context) {
	eventType := strings.TrimSpace(c.Query("type"))
	limit := intQuery(c, "limit", 100)

	out, err := s.outbox.List(c.Request.Context(), eventType, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}
