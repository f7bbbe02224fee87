package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/imposter/internal/dependencies/mocks"
	"github.com/mcoot/imposter/internal/model"
	redisstorage "github.com/mcoot/imposter/internal/storage/redis"
	"github.com/mcoot/imposter/internal/testutil"
)

const (
	idleAfter     = time.Hour
	sweepInterval = time.Minute
)

// RedisReaperSuite runs the reaper against expiring redis keys, with the
// key TTL set the way the server sets it
type RedisReaperSuite struct {
	suite.Suite
	mini        *miniredis.Miniredis
	clock       *mocks.MockClock
	random      *mocks.MockRandom
	notifier    *recordingNotifier
	coordinator *Coordinator
	ctx         context.Context
}

func TestRedisReaperSuite(t *testing.T) {
	suite.Run(t, new(RedisReaperSuite))
}

func (s *RedisReaperSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := goredis.NewClient(&goredis.Options{Addr: s.mini.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	store := redisstorage.NewWithClient(client, redisstorage.Config{
		RoomTTL: idleAfter + 2*sweepInterval,
	})

	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.notifier = newRecordingNotifier()
	s.coordinator = NewCoordinator(store, s.clock, s.random, s.notifier, testutil.NopLogger())
	s.ctx = context.Background()
}

// idle moves both the room clock and redis key expiry forward
func (s *RedisReaperSuite) idle(d time.Duration) {
	s.clock.Advance(d)
	s.mini.FastForward(d)
}

func (s *RedisReaperSuite) create(code, name string) model.RoomCode {
	s.random.QueueString(code)
	room, err := s.coordinator.CreateRoom(s.ctx, conn(name), name)
	s.Require().NoError(err)
	return room.Code
}

func (s *RedisReaperSuite) TestReaperClosesRoomBeforeKeyExpires() {
	code := s.create("ABCD", "ann")
	s.idle(idleAfter + sweepInterval)

	n, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-idleAfter))
	s.Require().NoError(err)
	s.Equal(1, n)

	closed, ok := s.notifier.last(conn("ann"), model.EventRoomClosed)
	s.Require().True(ok)
	s.Equal(ReasonIdle, closed.Payload.(model.RoomClosedPayload).Reason)
	s.Contains(s.notifier.closed, code)

	_, inRoom := s.coordinator.RoomOf(conn("ann"))
	s.False(inRoom)

	s.ErrorIs(s.coordinator.LeaveRoom(s.ctx, conn("ann"), code), model.ErrRoomNotFound)
	s.create("EFGH", "ann")
}

func (s *RedisReaperSuite) TestExpiredKeyDoesNotStrandPlayers() {
	code := s.create("ABCD", "ann")
	s.idle(idleAfter + 3*sweepInterval)

	n, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-idleAfter))
	s.Require().NoError(err)
	s.Equal(0, n)

	s.NoError(s.coordinator.LeaveRoom(s.ctx, conn("ann"), code))
	_, inRoom := s.coordinator.RoomOf(conn("ann"))
	s.False(inRoom)
	s.Equal(0, s.notifier.members(code))
}

func (s *RedisReaperSuite) TestCreateAfterKeyExpired() {
	old := s.create("ABCD", "ann")
	s.idle(idleAfter + 3*sweepInterval)

	code := s.create("EFGH", "ann")

	current, inRoom := s.coordinator.RoomOf(conn("ann"))
	s.True(inRoom)
	s.Equal(code, current)
	s.Equal(0, s.notifier.members(old))
}
