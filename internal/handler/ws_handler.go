package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/huddle-sync/internal/audit"
	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/service"
	"github.com/weiawesome/huddle-sync/pkg/log"
	"github.com/weiawesome/huddle-sync/pkg/middleware"
	"github.com/weiawesome/huddle-sync/pkg/response"
)

// WSHandler authenticates the handshake and bridges clients to the service.
type WSHandler struct {
	service   service.Service
	validator middleware.TokenValidator
	wsCfg     hub.Config
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a websocket handler. An empty allowedOrigins accepts
// any origin.
func NewWSHandler(svc service.Service, validator middleware.TokenValidator, wsCfg hub.Config, allowedOrigins []string) *WSHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &WSHandler{
		service:   svc,
		validator: validator,
		wsCfg:     wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleWebSocket handles GET /ws. A missing or invalid token is answered
// with 401 before any upgrade.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, err := h.authenticate(c.Request)
	if err != nil {
		audit.Log(ctx, audit.ActionAuthFailed, "", err.Error())
		response.Unauthorized(c, err.Error())
		return
	}
	c.Set(middleware.UserIDKey, identity.UserID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.NewString(), conn, h.wsCfg)
	// The request context ends when this handler returns; the connection does not.
	connCtx := log.WithConn(context.WithoutCancel(ctx), client.ID(), identity.UserID)

	go client.WritePump()

	if err := h.service.Connect(connCtx, client, identity); err != nil {
		l.Warn().Err(err).Msg("failed to register connection")
		client.Close()
		return
	}

	go client.ReadPump(
		func(cl *hub.Client, data []byte) { h.handleMessage(connCtx, cl, data) },
		func(cl *hub.Client) {
			if err := h.service.Disconnect(connCtx, cl.ID()); err != nil && !errors.Is(err, service.ErrStopped) {
				l := log.Ctx(connCtx)
				l.Warn().Err(err).Msg("failed to unregister connection")
			}
		},
	)
}

func (h *WSHandler) authenticate(r *http.Request) (domain.Identity, error) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}
	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, errors.Join(domain.ErrAuthentication, err)
	}
	if claims.UserID == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, data []byte) {
	msg, err := domain.DecodeInbound(data)
	if err != nil {
		h.service.Reject(ctx, client.ID(), err)
		return
	}

	if err := h.service.Handle(ctx, client.ID(), msg); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("message rejected")
	}
}
