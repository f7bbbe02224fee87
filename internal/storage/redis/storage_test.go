package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/imposter/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.RoomTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) newRoom(code string) *model.Room {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &model.Room{
		Code:   model.RoomCode(code),
		HostID: "conn-1",
		Phase:  model.PhaseWaiting,
		Players: []model.Player{
			{ID: "conn-1", DisplayName: "Ann", Ready: true},
			{ID: "conn-2", DisplayName: "Bob"},
			{ID: "conn-3", DisplayName: "Cid"},
		},
		Created: now,
		Updated: now,
	}
}

func (s *StorageSuite) TestSaveAndGetRoom() {
	room := s.newRoom("AB12")

	err := s.storage.SaveRoom(s.ctx, room)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRoom(s.ctx, "AB12")
	s.Require().NoError(err)
	s.Equal(room.Code, retrieved.Code)
	s.Equal(room.HostID, retrieved.HostID)
	s.Equal(room.Phase, retrieved.Phase)
	s.Equal(room.Players, retrieved.Players)
	s.True(room.Created.Equal(retrieved.Created))
	s.Nil(retrieved.Game)
}

func (s *StorageSuite) TestSaveAndGetRoomWithGame() {
	room := s.newRoom("AB12")
	room.Phase = model.PhasePlaying
	room.Game = &model.GameState{
		Category:      "objects",
		ImposterCount: 1,
		Topic:         model.Topic{Name: "Kettle", Hint: "Kitchen"},
		Roles: map[model.ConnectionID]model.Role{
			"conn-1": model.RoleImposter,
			"conn-2": model.RoleCrewmate,
			"conn-3": model.RoleCrewmate,
		},
		StartingPlayer: "conn-2",
	}
	_ = s.storage.SaveRoom(s.ctx, room)

	retrieved, err := s.storage.GetRoom(s.ctx, "AB12")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.Game)
	s.Equal(*room.Game, *retrieved.Game)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "ZZZZ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteRoom() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("AB12"))

	err := s.storage.DeleteRoom(s.ctx, "AB12")
	s.Require().NoError(err)

	exists, _ := s.storage.RoomExists(s.ctx, "AB12")
	s.False(exists)
}

func (s *StorageSuite) TestRoomTTLIsApplied() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("AB12"))

	s.Equal(time.Hour, s.mini.TTL(roomKey("AB12")))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetRoom(s.ctx, "AB12")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestSaveRefreshesTTL() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("AB12"))
	s.mini.FastForward(45 * time.Minute)

	_ = s.storage.SaveRoom(s.ctx, s.newRoom("AB12"))
	s.mini.FastForward(45 * time.Minute)

	exists, err := s.storage.RoomExists(s.ctx, "AB12")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestListRoomCodes() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("AAAA"))
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("BBBB"))
	s.Require().NoError(s.mini.Set("unrelated", "x"))

	codes, err := s.storage.ListRoomCodes(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.RoomCode{"AAAA", "BBBB"}, codes)
}

func (s *StorageSuite) TestKeyFormat() {
	s.Equal("imposter:room:AB12", roomKey("AB12"))
	s.Equal(model.RoomCode("AB12"), roomCodeFromKey(roomKey("AB12")))
}
