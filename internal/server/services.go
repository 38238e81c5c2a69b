package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
)

type createServiceRequest struct {
	Asset           string `json:"asset"`
	Price           int64  `json:"price"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

func (s *Server) CreateService(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	instance, err := s.registrySvc.CreateService(c.Request.Context(), registrydomain.CreateServiceRequest{
		OwnerID:         actor,
		Asset:           strings.TrimSpace(req.Asset),
		Price:           req.Price,
		IntervalSeconds: req.IntervalSeconds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": instance})
}

func (s *Server) GetService(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	instance, err := s.merchantSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": instance})
}

func (s *Server) ListServicesByOwner(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("owner_id"))
	if raw == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	owner, err := snowflake.ParseString(raw)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	records, err := s.directorySvc.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

type updateConfigRequest struct {
	Price           int64 `json:"price"`
	IntervalSeconds int64 `json:"interval_seconds"`
}

func (s *Server) UpdateServiceConfig(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	instance, err := s.merchantSvc.UpdateConfig(c.Request.Context(), merchantdomain.UpdateConfigRequest{
		Caller:          actor,
		ServiceID:       id,
		Price:           req.Price,
		IntervalSeconds: req.IntervalSeconds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": instance})
}

func (s *Server) PauseService(c *gin.Context) {
	s.setServicePaused(c, true)
}

func (s *Server) UnpauseService(c *gin.Context) {
	s.setServicePaused(c, false)
}

func (s *Server) setServicePaused(c *gin.Context, paused bool) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var err error
	if paused {
		err = s.merchantSvc.Pause(c.Request.Context(), actor, id)
	} else {
		err = s.merchantSvc.Unpause(c.Request.Context(), actor, id)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"service_id": id.String(), "paused": paused}})
}

func (s *Server) WithdrawFunds(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.merchantSvc.WithdrawFunds(c.Request.Context(), merchantdomain.WithdrawRequest{
		Caller:    actor,
		ServiceID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recoverAssetRequest struct {
	Asset string `json:"asset"`
}

func (s *Server) RecoverAsset(c *gin.Context) {
	actor, ok := actorFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req recoverAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.merchantSvc.RecoverAsset(c.Request.Context(), merchantdomain.RecoverAssetRequest{
		Caller:    actor,
		ServiceID: id,
		Asset:     strings.TrimSpace(req.Asset),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
