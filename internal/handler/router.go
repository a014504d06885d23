package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/pkg/log"
	"github.com/weiawesome/huddle-sync/pkg/middleware"
)

// NewRouter builds the gin engine serving the websocket endpoint, the
// authenticated read API and the internal callback.
func NewRouter(ws *WSHandler, h *Handler, validator middleware.TokenValidator, internalKey string, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))

	r.GET("/health", h.Health)
	r.GET("/ws", ws.HandleWebSocket)

	api := r.Group("/api/v1", middleware.RequireAuth(validator))
	{
		api.GET("/rooms/:room_id/members", h.GetMembers)
		api.GET("/rooms/:room_id/playback", h.GetPlayback)
		api.GET("/users/me/unread", h.GetMyUnread)
		api.GET("/users/:user_id/presence", h.GetPresence)
	}

	internal := r.Group("/internal/v1", middleware.RequireInternalKey(internalKey))
	{
		internal.POST("/messages", h.RecordMessage)
	}

	return r
}
