package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
)

func (s *Server) GetBalance(c *gin.Context) {
	holder, ok := idParam(c, "holder_id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	asset := strings.TrimSpace(c.Param("asset"))
	if asset == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	balance, err := s.treasurySvc.Balance(c.Request.Context(), holder, asset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"holder_id": holder.String(),
		"asset":     asset,
		"balance":   balance,
	}})
}

type depositRequest struct {
	HolderID string `json:"holder_id"`
	Asset    string `json:"asset"`
	Amount   int64  `json:"amount"`
}

func (s *Server) Deposit(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	holder, err := snowflake.ParseString(strings.TrimSpace(req.HolderID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	account, err := s.treasurySvc.Deposit(c.Request.Context(), treasurydomain.DepositRequest{
		Actor:    actor,
		HolderID: holder,
		Asset:    strings.TrimSpace(req.Asset),
		Amount:   req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}
