package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/service"
	"github.com/weiawesome/huddle-sync/pkg/log"
	"github.com/weiawesome/huddle-sync/pkg/middleware"
	"github.com/weiawesome/huddle-sync/pkg/response"
)

// Handler serves read-only views of the live state and the internal fan-out
// callback.
type Handler struct {
	service service.Service
}

func NewHandler(svc service.Service) *Handler {
	return &Handler{service: svc}
}

// RecordMessageRequest is posted by the CRUD layer after a message fan-out.
type RecordMessageRequest struct {
	MessageID    string   `json:"message_id"`
	RoomID       string   `json:"room_id" binding:"required"`
	AuthorID     string   `json:"user_id" binding:"required"`
	RecipientIDs []string `json:"recipient_ids"`
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.ServiceUnavailable(c, "sync loop unavailable")
		return
	}
	response.Success(c, gin.H{
		"status": "ok",
		"stats":  stats,
	})
}

// GetMembers handles GET /api/v1/rooms/:room_id/members.
func (h *Handler) GetMembers(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("room_id")

	members, err := h.service.Members(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRoom) {
			response.NotFound(c, "room not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get members")
		response.InternalError(c, "failed to get members")
		return
	}

	response.Success(c, gin.H{
		"room_id": roomID,
		"members": members,
	})
}

// GetPlayback handles GET /api/v1/rooms/:room_id/playback. The state is
// returned anchored together with the server time; no position is computed.
func (h *Handler) GetPlayback(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("room_id")

	state, now, err := h.service.Playback(ctx, roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownRoom):
			response.NotFound(c, "room not found")
		case errors.Is(err, domain.ErrNotListeningRoom):
			response.BadRequest(c, "room has no playback")
		default:
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get playback")
			response.InternalError(c, "failed to get playback")
		}
		return
	}

	response.Success(c, gin.H{
		"room_id":     roomID,
		"status":      state.Status(),
		"state":       state,
		"server_time": now,
	})
}

// GetMyUnread handles GET /api/v1/users/me/unread.
func (h *Handler) GetMyUnread(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	counts, err := h.service.UnreadCounts(ctx, userID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to get unread counts")
		response.InternalError(c, "failed to get unread counts")
		return
	}

	response.Success(c, gin.H{
		"user_id": userID,
		"counts":  counts,
	})
}

// GetPresence handles GET /api/v1/users/:user_id/presence.
func (h *Handler) GetPresence(c *gin.Context) {
	ctx := c.Request.Context()

	info, err := h.service.Presence(ctx, c.Param("user_id"))
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to get presence")
		response.InternalError(c, "failed to get presence")
		return
	}

	response.Success(c, info)
}

// RecordMessage handles POST /internal/v1/messages.
func (h *Handler) RecordMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req RecordMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind record message request")
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.RecordMessage(ctx, req.MessageID, req.RoomID, req.AuthorID, req.RecipientIDs); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMessage):
			response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrUnknownRoom):
			response.NotFound(c, "room not found")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, req.RoomID).Msg("failed to record message")
			response.InternalError(c, "failed to record message")
		}
		return
	}

	response.Accepted(c, gin.H{
		"room_id":    req.RoomID,
		"message_id": req.MessageID,
	})
}
