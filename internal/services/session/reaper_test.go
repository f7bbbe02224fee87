package session

import (
	"time"

	"github.com/mcoot/imposter/internal/model"
)

func (s *CoordinatorSuite) TestReapIdleRemovesStaleRooms() {
	stale := s.setupRoom("AB12", "ann", "bob")
	s.clock.Advance(2 * time.Hour)
	fresh := s.setupRoom("CD34", "cid")

	n, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.coordinator.GetRoom(s.ctx, stale)
	s.ErrorIs(err, model.ErrRoomNotFound)
	_, err = s.coordinator.GetRoom(s.ctx, fresh)
	s.NoError(err)
}

func (s *CoordinatorSuite) TestReapIdleNotifiesMembers() {
	code := s.setupRoom("AB12", "ann", "bob")
	s.clock.Advance(2 * time.Hour)

	_, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-time.Hour))
	s.Require().NoError(err)

	for _, name := range []string{"ann", "bob"} {
		closed, ok := s.notifier.last(conn(name), model.EventRoomClosed)
		s.Require().True(ok, name)
		s.Equal(ReasonIdle, closed.Payload.(model.RoomClosedPayload).Reason)

		_, inRoom := s.coordinator.RoomOf(conn(name))
		s.False(inRoom, name)
	}
	s.Contains(s.notifier.closed, code)
}

func (s *CoordinatorSuite) TestReapedPlayersCanStartAgain() {
	s.setupRoom("AB12", "ann")
	s.clock.Advance(2 * time.Hour)
	_, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-time.Hour))
	s.Require().NoError(err)

	s.random.QueueString("CD34")
	_, err = s.coordinator.CreateRoom(s.ctx, conn("ann"), "ann")
	s.NoError(err)
}

func (s *CoordinatorSuite) TestActivityKeepsRoomAlive() {
	code := s.setupRoom("AB12", "ann", "bob")
	s.clock.Advance(2 * time.Hour)
	s.Require().NoError(s.coordinator.ToggleReady(s.ctx, conn("bob"), code))

	n, err := s.coordinator.ReapIdle(s.ctx, s.clock.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(0, n)
}
