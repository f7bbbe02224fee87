package storage

import (
	"context"

	"github.com/mcoot/imposter/internal/model"
)

// Storage defines the interface for room persistence.
//
// Implementations hand out copies: a room returned by GetRoom is never
// aliased by the store, so callers must SaveRoom to publish a mutation.
type Storage interface {
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)

	// ListRoomCodes returns every stored room code, in no particular order.
	// Used by the idle room reaper.
	ListRoomCodes(ctx context.Context) ([]model.RoomCode, error)
}
