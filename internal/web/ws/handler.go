package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/imposter/internal/api/apierr"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
	"github.com/mcoot/imposter/internal/services/catalog"
	"github.com/mcoot/imposter/internal/services/session"
)

// Join failure strings shown to players
const (
	joinRoomNotFound   = "Room not found"
	joinAlreadyStarted = "Game already started"
)


// defaultCategoryName labels games started from a client-supplied theme
const defaultCategoryName = "custom"

// Handler upgrades HTTP requests to websockets and routes each inbound
// command to the coordinator
type Handler struct {
	coordinator *session.Coordinator
	catalog     *catalog.Service
	registry    *Registry
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates a websocket Handler
func NewHandler(coordinator *session.Coordinator, catalog *catalog.Service, registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		catalog:     catalog,
		registry:    registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	client := newClient(model.ConnectionID(uuid.NewString()), conn, h.logger)
	h.registry.register(client)
	defer func() {
		if err := h.coordinator.Disconnect(ctx, client.id); err != nil {
			client.logger.Error("disconnect cleanup failed", slog.String("error", err.Error()))
		}
		h.registry.unregister(client)
	}()
	go client.writePump()

	h.registry.SendMessage(client.id, protocol.ConnectedMessage(client.id))

	client.readPump(func(data []byte) {
		h.dispatch(ctx, client, data)
	})
}

// dispatch handles one inbound frame. A panicking command is answered with
// an internal error and the connection stays open.
func (h *Handler) dispatch(ctx context.Context, c *Client, data []byte) {
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("panic recovered",
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
			apiErr := apierr.FromError(fmt.Errorf("command panicked: %v", err))
			h.registry.SendMessage(c.id, protocol.ErrorMessage("", "", apiErr.Code, apiErr.Message))
		}
	}()

	h.handle(ctx, c, data)
}

func (h *Handler) handle(ctx context.Context, c *Client, data []byte) {
	req, err := protocol.Decode(data)
	if err != nil {
		h.reject(c, req, err)
		return
	}

	c.logger.Debug("ws command", slog.String("type", string(req.Type)))

	switch cmd := req.Command.(type) {
	case *protocol.CreateRoom:
		room, err := h.coordinator.CreateRoom(ctx, c.id, cmd.PlayerName)
		if err != nil {
			h.reject(c, req, err)
			return
		}
		h.reply(c, req, protocol.Reply{Success: true, RoomCode: string(room.Code), PlayerID: string(c.id)})

	case *protocol.JoinRoom:
		room, err := h.coordinator.JoinRoom(ctx, c.id, cmd.RoomCode, cmd.PlayerName)
		if err != nil {
			h.reject(c, req, err)
			return
		}
		h.reply(c, req, protocol.Reply{Success: true, RoomCode: string(room.Code), PlayerID: string(c.id)})

	case *protocol.GetMyRole:
		view, err := h.coordinator.GetMyRole(ctx, c.id, cmd.RoomCode)
		if err != nil {
			h.reject(c, req, err)
			return
		}
		h.reply(c, req, protocol.Reply{Success: true, Role: string(view.Role), Theme: &view.Topic})

	case *protocol.ToggleReady:
		h.check(c, req, h.coordinator.ToggleReady(ctx, c.id, cmd.RoomCode))

	case *protocol.StartGame:
		h.check(c, req, h.startGame(ctx, c, cmd))

	case *protocol.EndGame:
		_, err := h.coordinator.EndGame(ctx, c.id, cmd.RoomCode)
		h.check(c, req, err)

	case *protocol.RestartGame:
		h.check(c, req, h.coordinator.RestartGame(ctx, c.id, cmd.RoomCode))

	case *protocol.LeaveRoom:
		h.check(c, req, h.coordinator.LeaveRoom(ctx, c.id, cmd.RoomCode))
	}
}

// startGame resolves the topic pool: a client theme wins, otherwise the
// category's catalog entries are used
func (h *Handler) startGame(ctx context.Context, c *Client, cmd *protocol.StartGame) error {
	category := cmd.Category
	var topics []model.Topic

	if cmd.Theme != nil {
		topics = []model.Topic{*cmd.Theme}
		if category == "" {
			category = defaultCategoryName
		}
	} else {
		var err error
		topics, err = h.catalog.Topics(category)
		if err != nil {
			return err
		}
	}

	return h.coordinator.StartGame(ctx, c.id, cmd.RoomCode, session.StartOptions{
		Category:      category,
		ImposterCount: cmd.ImposterCount,
		Topics:        topics,
	})
}

func (h *Handler) check(c *Client, req *protocol.Request, err error) {
	if err != nil {
		h.reject(c, req, err)
	}
}

func (h *Handler) reply(c *Client, req *protocol.Request, r protocol.Reply) {
	h.registry.SendMessage(c.id, protocol.ReplyMessage(req.ID, r))
}

// reject answers request/response commands with a failed reply and every
// other command with an error message
func (h *Handler) reject(c *Client, req *protocol.Request, err error) {
	apiErr := apierr.FromError(err)
	if apiErr.Code == apierr.CodeInternalError {
		c.logger.Error("ws command failed", slog.String("error", err.Error()))
	} else {
		c.logger.Debug("ws command rejected", slog.String("code", apiErr.Code), slog.String("error", err.Error()))
	}

	if req == nil {
		h.registry.SendMessage(c.id, protocol.ErrorMessage("", "", apiErr.Code, apiErr.Message))
		return
	}

	switch req.Type {
	case protocol.CommandCreateRoom, protocol.CommandJoinRoom, protocol.CommandGetMyRole:
		h.reply(c, req, protocol.Reply{Success: false, Error: replyError(req.Type, err, apiErr)})
	default:
		h.registry.SendMessage(c.id, protocol.ErrorMessage(req.ID, req.Type, apiErr.Code, apiErr.Message))
	}
}

func replyError(t protocol.CommandType, err error, apiErr apierr.APIError) string {
	if t == protocol.CommandJoinRoom {
		switch {
		case errors.Is(err, model.ErrRoomNotFound):
			return joinRoomNotFound
		case errors.Is(err, model.ErrInvalidPhase):
			return joinAlreadyStarted
		}
	}
	return apiErr.Message
}
