package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/services/session"
	redisstorage "github.com/mcoot/imposter/internal/storage/redis"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// Test: Complete round from room creation through restart
func (s *IntegrationSuite) TestCompleteRound() {
	s.app.MockRandom.QueueString("GAME")

	// Step 1: Ann creates a room
	room, err := s.app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("GAME"), room.Code)

	// Step 2: Bob and Cid join, case-insensitively
	_, err = s.app.Coordinator.JoinRoom(s.ctx, "bob", "game", "Bob")
	s.Require().NoError(err)
	_, err = s.app.Coordinator.JoinRoom(s.ctx, "cid", "Game", "Cid")
	s.Require().NoError(err)

	// Step 3: Start with topics from the catalog
	topics, err := s.app.Catalog.Topics(TestCategory)
	s.Require().NoError(err)
	s.app.MockRandom.QueueIntn(2, 1, 2, 0)
	err = s.app.Coordinator.StartGame(s.ctx, "ann", room.Code, session.StartOptions{
		Category:      TestCategory,
		ImposterCount: 1,
		Topics:        topics,
	})
	s.Require().NoError(err)

	// Step 4: Ann is the imposter and only sees the hint
	annRole, err := s.app.Coordinator.GetMyRole(s.ctx, "ann", room.Code)
	s.Require().NoError(err)
	s.Equal(model.RoleImposter, annRole.Role)
	s.Empty(annRole.Topic.Name)
	s.Equal("Paris", annRole.Topic.Hint)

	bobRole, err := s.app.Coordinator.GetMyRole(s.ctx, "bob", room.Code)
	s.Require().NoError(err)
	s.Equal(model.RoleCrewmate, bobRole.Role)
	s.Equal("Eiffel Tower", bobRole.Topic.Name)

	// Step 5: End and reveal
	results, err := s.app.Coordinator.EndGame(s.ctx, "ann", room.Code)
	s.Require().NoError(err)
	s.Len(results.Players, 3)
	s.Equal("Eiffel Tower", results.Topic.Name)

	// Step 6: Restart for another round
	s.Require().NoError(s.app.Coordinator.RestartGame(s.ctx, "ann", room.Code))
	stored, err := s.app.Coordinator.GetRoom(s.ctx, room.Code)
	s.Require().NoError(err)
	s.Equal(model.PhaseWaiting, stored.Phase)
	s.Nil(stored.Game)
}

// Test: Room is deleted once everyone leaves
func (s *IntegrationSuite) TestRoomDeletedWhenEmpty() {
	s.app.MockRandom.QueueString("GONE")
	room, err := s.app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
	s.Require().NoError(err)
	_, err = s.app.Coordinator.JoinRoom(s.ctx, "bob", room.Code, "Bob")
	s.Require().NoError(err)

	s.Require().NoError(s.app.Coordinator.LeaveRoom(s.ctx, "ann", room.Code))
	s.Require().NoError(s.app.Coordinator.Disconnect(s.ctx, "bob"))

	s.Equal(0, s.app.MemoryStore.RoomCount())
}

// Test: Idle rooms are reaped against the mock clock
func (s *IntegrationSuite) TestIdleRoomReaped() {
	s.app.MockRandom.QueueString("IDLE")
	_, err := s.app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
	s.Require().NoError(err)

	s.app.MockClock.Advance(3 * time.Hour)
	n, err := s.app.Coordinator.ReapIdle(s.ctx, s.app.MockClock.Now().Add(-2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(0, s.app.MemoryStore.RoomCount())
}

func (s *IntegrationSuite) TestNewWithMemoryStorage() {
	app, err := New(Config{})
	s.Require().NoError(err)
	defer func() { _ = app.Close() }()

	s.NotEmpty(app.Catalog.Categories())
	s.Contains(app.Catalog.Categories(), "football")

	room, err := app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
	s.Require().NoError(err)
	_, err = model.ParseRoomCode(string(room.Code))
	s.NoError(err)
}

func (s *IntegrationSuite) TestNewWithRedisStorage() {
	mr := miniredis.RunT(s.T())

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()
	app, err := New(Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	s.Require().NoError(err)
	defer func() { _ = app.Close() }()

	room, err := app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
	s.Require().NoError(err)
	s.True(mr.Exists("imposter:room:" + string(room.Code)))
}

func (s *IntegrationSuite) TestNewWithSeedIsReproducible() {
	codes := make([]model.RoomCode, 2)
	for i := range codes {
		app, err := New(Config{Seed: 7})
		s.Require().NoError(err)
		room, err := app.Coordinator.CreateRoom(s.ctx, "ann", "Ann")
		s.Require().NoError(err)
		codes[i] = room.Code
	}
	s.Equal(codes[0], codes[1])
}

func (s *IntegrationSuite) TestNewRejectsBadStorage() {
	_, err := New(Config{StorageType: "sqlite"})
	s.Error(err)

	_, err = New(Config{StorageType: StorageTypeRedis})
	s.Error(err)
}
