package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/deep3/social/events"
)

// StreamController upgrades clients to the live event websocket.
type StreamController struct {
	hub *events.Hub
}

func NewStreamController(hub *events.Hub) *StreamController {
	return &StreamController{hub: hub}
}

// Stream hands the connection to the hub.
func (s *StreamController) Stream(ctx *gin.Context) {
	s.hub.ServeWS(ctx.Writer, ctx.Request)
}
