package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
)

func (s *Server) Subscribe(c *gin.Context) {
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

	resp, err := s.merchantSvc.Subscribe(c.Request.Context(), merchantdomain.SubscribeRequest{
		Caller:    actor,
		ServiceID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	subscriber, ok := idParam(c, "subscriber_id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	details, err := s.merchantSvc.GetSubscriptionDetails(c.Request.Context(), id, subscriber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": details})
}
