package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
)

func (s *Server) GetPlatformSettings(c *gin.Context) {
	settings, err := s.registrySvc.Settings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

type setDestinationRequest struct {
	DestinationID string `json:"destination_id"`
}

func (s *Server) SetPlatformDestination(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req setDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	destination, err := snowflake.ParseString(strings.TrimSpace(req.DestinationID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.registrySvc.SetPlatformDestination(c.Request.Context(), actor, destination); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"destination_id": destination.String()}})
}

func (s *Server) PausePlatform(c *gin.Context) {
	s.setPlatformPaused(c, true)
}

func (s *Server) UnpausePlatform(c *gin.Context) {
	s.setPlatformPaused(c, false)
}

func (s *Server) setPlatformPaused(c *gin.Context, paused bool) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var err error
	if paused {
		err = s.registrySvc.Pause(c.Request.Context(), actor)
	} else {
		err = s.registrySvc.Unpause(c.Request.Context(), actor)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"paused": paused}})
}

type setCustomFeeRequest struct {
	FeeRateBps int32 `json:"fee_rate_bps"`
	Active     bool  `json:"active"`
}

func (s *Server) SetCustomFee(c *gin.Context) {
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

	var req setCustomFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	fee, err := s.registrySvc.SetCustomFee(c.Request.Context(), registrydomain.SetCustomFeeRequest{
		Actor:      actor,
		ServiceID:  serviceID,
		FeeRateBps: req.FeeRateBps,
		Active:     req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": fee})
}

func (s *Server) ClearCustomFee(c *gin.Context) {
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

	if err := s.registrySvc.ClearCustomFee(c.Request.Context(), actor, serviceID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"service_id": serviceID.String()}})
}
