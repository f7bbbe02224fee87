package session

import (
	"context"

	"github.com/mcoot/imposter/internal/dependencies/clock"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/storage"
)

// Store is the room store. Every read goes back to the backing storage by
// code, so callers always observe the latest committed state.
type Store struct {
	storage storage.Storage
	clock   clock.Clock
}

// NewStore creates a Store over the given backend
func NewStore(storage storage.Storage, clock clock.Clock) *Store {
	return &Store{storage: storage, clock: clock}
}

// Create saves a new waiting room whose only player is the host
func (s *Store) Create(ctx context.Context, code model.RoomCode, hostID model.ConnectionID, hostName string) (*model.Room, error) {
	now := s.clock.Now()
	room := &model.Room{
		Code:   code,
		HostID: hostID,
		Phase:  model.PhaseWaiting,
		Players: []model.Player{
			{ID: hostID, DisplayName: hostName},
		},
		Created: now,
		Updated: now,
	}

	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Get loads a room by code
func (s *Store) Get(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.storage.GetRoom(ctx, code)
}

// Save stamps the room as updated and writes it back
func (s *Store) Save(ctx context.Context, room *model.Room) error {
	room.Updated = s.clock.Now()
	return s.storage.SaveRoom(ctx, room)
}

// Delete removes a room
func (s *Store) Delete(ctx context.Context, code model.RoomCode) error {
	return s.storage.DeleteRoom(ctx, code)
}

// Exists reports whether a room is stored under code
func (s *Store) Exists(ctx context.Context, code model.RoomCode) (bool, error) {
	return s.storage.RoomExists(ctx, code)
}

// Codes lists every stored room code
func (s *Store) Codes(ctx context.Context) ([]model.RoomCode, error) {
	return s.storage.ListRoomCodes(ctx)
}
