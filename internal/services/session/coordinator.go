package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/imposter/internal/dependencies/clock"
	"github.com/mcoot/imposter/internal/dependencies/random"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/services/roles"
	"github.com/mcoot/imposter/internal/storage"
)

const (
	// MinPlayers is the smallest room that can start a game
	MinPlayers = 3

	// maxCodeAttempts bounds room code regeneration on collision
	maxCodeAttempts = 32
)

// Notifier delivers coordinator output to connected clients.
//
// Methods are called while the room is locked, so implementations must only
// enqueue and never block on the network.
type Notifier interface {
	// AddToRoom puts a connection in the room's broadcast group
	AddToRoom(conn model.ConnectionID, code model.RoomCode)
	// RemoveFromRoom takes a connection out of the room's broadcast group
	RemoveFromRoom(conn model.ConnectionID, code model.RoomCode)
	// Broadcast sends an event to every connection in the room's group
	Broadcast(code model.RoomCode, event model.Event)
	// Send delivers an event to a single connection
	Send(conn model.ConnectionID, event model.Event)
	// CloseRoom dissolves the room's broadcast group
	CloseRoom(code model.RoomCode)
}

// StartOptions are the host's choices for a new game
type StartOptions struct {
	Category      string
	ImposterCount int
	// Topics is the candidate pool; one is picked at random
	Topics []model.Topic
}

// RoleView is what a single player is allowed to know about the game
type RoleView struct {
	Role  model.Role
	Topic model.Topic
}

// Results is the end-of-game reveal
type Results struct {
	Players []model.PlayerResult
	Topic   model.Topic
}

// Coordinator owns the room lifecycle: it validates commands against the
// room's phase, mutates the store, and decides who hears about it.
//
// Commands on one room are serialized by a per-room lock; commands on
// different rooms run in parallel.
type Coordinator struct {
	store    *Store
	engine   *roles.Engine
	notifier Notifier
	random   random.Random
	logger   *slog.Logger

	locks *roomLocks

	// membership maps each connection to the room it is in
	mu         sync.Mutex
	membership map[model.ConnectionID]model.RoomCode
}

// NewCoordinator creates a Coordinator
func NewCoordinator(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	notifier Notifier,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		store:      NewStore(storage, clock),
		engine:     roles.NewEngine(random),
		notifier:   notifier,
		random:     random,
		logger:     logger.With(slog.String("component", "coordinator")),
		locks:      newRoomLocks(),
		membership: make(map[model.ConnectionID]model.RoomCode),
	}
}

// CreateRoom opens a new waiting room with the caller as its host and only player
func (c *Coordinator) CreateRoom(ctx context.Context, conn model.ConnectionID, name string) (*model.Room, error) {
	if err := c.ensureFree(ctx, conn); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := model.RoomCode(c.random.String(model.RoomCodeLength, model.RoomCodeAlphabet))

		room, err := c.tryCreate(ctx, code, conn, name)
		if err != nil {
			return nil, err
		}
		if room != nil {
			return room, nil
		}
		c.logger.Debug("room code collision", slog.String("room", string(code)))
	}

	return nil, model.ErrRoomCodeExhausted
}

// tryCreate creates the room under code unless it is taken, in which case it
// returns a nil room and no error
func (c *Coordinator) tryCreate(ctx context.Context, code model.RoomCode, conn model.ConnectionID, name string) (*model.Room, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	exists, err := c.store.Exists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	room, err := c.store.Create(ctx, code, conn, name)
	if err != nil {
		return nil, err
	}

	c.setRoom(conn, code)
	c.notifier.AddToRoom(conn, code)
	c.broadcastSnapshot(room)

	c.logger.Info("room created",
		slog.String("room", string(code)),
		slog.String("conn", string(conn)),
		slog.String("name", name))

	return room, nil
}

// GetRoom returns a snapshot of a room
func (c *Coordinator) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	return c.store.Get(ctx, code)
}

// JoinRoom adds the caller to a waiting room as a non-ready player
func (c *Coordinator) JoinRoom(ctx context.Context, conn model.ConnectionID, code model.RoomCode, name string) (*model.Room, error) {
	code = model.NormalizeRoomCode(string(code))

	if err := c.ensureFree(ctx, conn); err != nil {
		return nil, err
	}

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.Phase != model.PhaseWaiting {
		return nil, model.ErrInvalidPhase
	}
	if room.HasPlayer(conn) {
		return nil, model.ErrAlreadyInRoom
	}

	room.Players = append(room.Players, model.Player{ID: conn, DisplayName: name})
	if err := c.store.Save(ctx, room); err != nil {
		return nil, err
	}

	c.setRoom(conn, code)
	c.notifier.AddToRoom(conn, code)
	c.broadcastSnapshot(room)

	c.logger.Info("player joined",
		slog.String("room", string(code)),
		slog.String("conn", string(conn)),
		slog.String("name", name),
		slog.Int("players", len(room.Players)))

	return room, nil
}

// ToggleReady flips the caller's ready flag
func (c *Coordinator) ToggleReady(ctx context.Context, conn model.ConnectionID, code model.RoomCode) error {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	player := room.GetPlayer(conn)
	if player == nil {
		return model.ErrNotInRoom
	}
	player.Ready = !player.Ready

	if err := c.store.Save(ctx, room); err != nil {
		return err
	}

	c.broadcastSnapshot(room)
	return nil
}

// StartGame deals roles to the current players and moves the room to playing.
// Everyone hears the game started; each player privately receives their role.
func (c *Coordinator) StartGame(ctx context.Context, conn model.ConnectionID, code model.RoomCode, opts StartOptions) error {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	if !room.IsHost(conn) {
		return model.ErrNotHost
	}
	if !room.Phase.CanTransitionTo(model.PhasePlaying) {
		return model.ErrInvalidPhase
	}
	if len(room.Players) < MinPlayers {
		return model.ErrInsufficientPlayers
	}
	if err := roles.ValidateImposterCount(len(room.Players), opts.ImposterCount); err != nil {
		return err
	}

	ids := room.PlayerIDs()
	assignment, err := c.engine.Assign(ids, opts.ImposterCount, opts.Topics)
	if err != nil {
		return err
	}

	starting := room.Players[c.random.Intn(len(room.Players))]

	room.Phase = model.PhasePlaying
	room.Game = &model.GameState{
		Category:       opts.Category,
		ImposterCount:  opts.ImposterCount,
		Topic:          assignment.Topic,
		Roles:          assignment.Roles,
		StartingPlayer: starting.ID,
	}

	if err := c.store.Save(ctx, room); err != nil {
		return err
	}

	c.notifier.Broadcast(code, model.Event{
		Type:     model.EventGameStarted,
		RoomCode: code,
		Payload: model.GameStartedPayload{
			Category:       opts.Category,
			PlayerCount:    len(room.Players),
			StartingPlayer: starting.DisplayName,
		},
	})

	for _, id := range ids {
		role := assignment.Roles[id]
		c.notifier.Send(id, model.Event{
			Type:     model.EventYourRole,
			RoomCode: code,
			Payload: model.YourRolePayload{
				Role:  role,
				Topic: assignment.Topic.RevealFor(role),
			},
		})
	}

	c.logger.Info("game started",
		slog.String("room", string(code)),
		slog.String("category", opts.Category),
		slog.Int("players", len(ids)),
		slog.Int("imposters", opts.ImposterCount))

	return nil
}

// GetMyRole returns the caller's role, with the topic name withheld from imposters
func (c *Coordinator) GetMyRole(ctx context.Context, conn model.ConnectionID, code model.RoomCode) (*RoleView, error) {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.Phase == model.PhaseWaiting || room.Game == nil {
		return nil, model.ErrInvalidPhase
	}

	role, ok := room.RoleOf(conn)
	if !ok {
		return nil, model.ErrNotInRoom
	}

	return &RoleView{
		Role:  role,
		Topic: room.Game.Topic.RevealFor(role),
	}, nil
}

// EndGame finishes the round and reveals every role and the topic to the room
func (c *Coordinator) EndGame(ctx context.Context, conn model.ConnectionID, code model.RoomCode) (*Results, error) {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if !room.IsHost(conn) {
		return nil, model.ErrNotHost
	}
	if room.Phase != model.PhasePlaying || room.Game == nil {
		return nil, model.ErrInvalidPhase
	}

	room.Phase = model.PhaseFinished
	if err := c.store.Save(ctx, room); err != nil {
		return nil, err
	}

	results := &Results{
		Players: make([]model.PlayerResult, 0, len(room.Players)),
		Topic:   room.Game.Topic,
	}
	for _, p := range room.Players {
		results.Players = append(results.Players, model.PlayerResult{
			Player: p,
			Role:   room.Game.Roles[p.ID],
		})
	}

	c.notifier.Broadcast(code, model.Event{
		Type:     model.EventGameEnded,
		RoomCode: code,
		Payload: model.GameEndedPayload{
			Results: results.Players,
			Topic:   results.Topic,
		},
	})

	c.logger.Info("game ended", slog.String("room", string(code)))

	return results, nil
}

// RestartGame clears the finished (or abandoned) game and returns the room to
// waiting with every player unready
func (c *Coordinator) RestartGame(ctx context.Context, conn model.ConnectionID, code model.RoomCode) error {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	if !room.IsHost(conn) {
		return model.ErrNotHost
	}
	if !room.Phase.CanTransitionTo(model.PhaseWaiting) {
		return model.ErrInvalidPhase
	}

	room.Phase = model.PhaseWaiting
	room.Game = nil
	for i := range room.Players {
		room.Players[i].Ready = false
	}

	if err := c.store.Save(ctx, room); err != nil {
		return err
	}

	c.broadcastSnapshot(room)

	c.logger.Info("game restarted", slog.String("room", string(code)))
	return nil
}

// LeaveRoom removes the caller from the room. An emptied room is deleted;
// otherwise a departing host hands over to the earliest remaining joiner.
func (c *Coordinator) LeaveRoom(ctx context.Context, conn model.ConnectionID, code model.RoomCode) error {
	code = model.NormalizeRoomCode(string(code))

	unlock := c.locks.lock(code)
	defer unlock()

	err := c.leaveLocked(ctx, conn, code)
	if isGone(err) {
		if current, ok := c.roomOf(conn); ok && current == code {
			c.forget(conn, code)
			return nil
		}
	}
	return err
}

// Disconnect runs the leave path for whichever room the connection was in.
// A connection in no room is a no-op.
func (c *Coordinator) Disconnect(ctx context.Context, conn model.ConnectionID) error {
	code, ok := c.roomOf(conn)
	if !ok {
		return nil
	}

	unlock := c.locks.lock(code)
	defer unlock()

	err := c.leaveLocked(ctx, conn, code)
	if isGone(err) {
		// Already gone, e.g. reaped while the socket was closing
		c.forget(conn, code)
		return nil
	}
	return err
}

// ensureFree rejects a connection that is still a member of a live room.
// A remembered room that has since vanished, for example through storage
// expiry, is forgotten instead.
func (c *Coordinator) ensureFree(ctx context.Context, conn model.ConnectionID) error {
	code, ok := c.roomOf(conn)
	if !ok {
		return nil
	}

	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
	case err != nil:
		return err
	case room.HasPlayer(conn):
		return model.ErrAlreadyInRoom
	}

	c.logger.Info("dropping stale membership",
		slog.String("room", string(code)),
		slog.String("conn", string(conn)))
	c.forget(conn, code)
	return nil
}

// forget drops the connection's membership and group for a room it can no
// longer be found in
func (c *Coordinator) forget(conn model.ConnectionID, code model.RoomCode) {
	c.clearRoom(conn, code)
	c.notifier.RemoveFromRoom(conn, code)
}

func isGone(err error) bool {
	return errors.Is(err, model.ErrRoomNotFound) || errors.Is(err, model.ErrNotInRoom)
}

// RoomOf returns the room the connection is currently in
func (c *Coordinator) RoomOf(conn model.ConnectionID) (model.RoomCode, bool) {
	return c.roomOf(conn)
}

func (c *Coordinator) leaveLocked(ctx context.Context, conn model.ConnectionID, code model.RoomCode) error {
	room, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	if !room.RemovePlayer(conn) {
		return model.ErrNotInRoom
	}

	c.clearRoom(conn, code)
	c.notifier.RemoveFromRoom(conn, code)

	if len(room.Players) == 0 {
		if err := c.store.Delete(ctx, code); err != nil {
			return err
		}
		c.notifier.CloseRoom(code)
		c.logger.Info("room deleted (empty)", slog.String("room", string(code)))
		return nil
	}

	if room.IsHost(conn) {
		room.HostID = room.Players[0].ID
		c.logger.Info("host transferred",
			slog.String("room", string(code)),
			slog.String("from", string(conn)),
			slog.String("to", string(room.HostID)))
	}

	if err := c.store.Save(ctx, room); err != nil {
		return err
	}

	c.broadcastSnapshot(room)

	c.logger.Info("player left",
		slog.String("room", string(code)),
		slog.String("conn", string(conn)),
		slog.Int("players", len(room.Players)))

	return nil
}

func (c *Coordinator) broadcastSnapshot(room *model.Room) {
	c.notifier.Broadcast(room.Code, model.Event{
		Type:     model.EventRoomUpdate,
		RoomCode: room.Code,
		Payload: model.RoomUpdatePayload{
			Players: slices.Clone(room.Players),
			HostID:  room.HostID,
		},
	})
}

func (c *Coordinator) roomOf(conn model.ConnectionID) (model.RoomCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.membership[conn]
	return code, ok
}

func (c *Coordinator) setRoom(conn model.ConnectionID, code model.RoomCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.membership[conn] = code
}

// clearRoom forgets the membership only if it still points at code
func (c *Coordinator) clearRoom(conn model.ConnectionID, code model.RoomCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.membership[conn] == code {
		delete(c.membership, conn)
	}
}
