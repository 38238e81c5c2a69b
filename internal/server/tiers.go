package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
)

func (s *Server) ListTiers(c *gin.Context) {
	tiers, err := s.tierSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}

func (s *Server) GetTier(c *gin.Context) {
	id, ok := tierIDParam(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	t, err := s.tierSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": t})
}

type purchaseTierRequest struct {
	TierID int16 `json:"tier_id"`
}

func (s *Server) PurchaseTier(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	serviceID, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req purchaseTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	license, err := s.registrySvc.PurchaseTier(c.Request.Context(), registrydomain.PurchaseTierRequest{
		Caller:    actor,
		ServiceID: serviceID,
		TierID:    tierdomain.TierID(req.TierID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": license})
}

func (s *Server) ResolveFee(c *gin.Context) {
	serviceID, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rate, err := s.registrySvc.ResolveFee(c.Request.Context(), serviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"service_id":   serviceID.String(),
		"fee_rate_bps": rate,
	}})
}

type overwriteTierRequest struct {
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	FeeRateBps      int32  `json:"fee_rate_bps"`
	DurationSeconds int64  `json:"duration_seconds"`
	Active          bool   `json:"active"`
}

func (s *Server) OverwriteTier(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	id, ok := tierIDParam(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req overwriteTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	t, err := s.registrySvc.UpdateTier(c.Request.Context(), actor, tierdomain.OverwriteTierRequest{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		Price:           req.Price,
		FeeRateBps:      req.FeeRateBps,
		DurationSeconds: req.DurationSeconds,
		Active:          req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": t})
}

func tierIDParam(c *gin.Context) (tierdomain.TierID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	v, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return 0, false
	}
	return tierdomain.TierID(v), true
}
