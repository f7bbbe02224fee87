package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseWaiting, PhasePlaying, true},
		{PhaseWaiting, PhaseFinished, false},
		{PhasePlaying, PhaseFinished, true},
		{PhasePlaying, PhaseWaiting, true},
		{PhaseFinished, PhaseWaiting, true},
		{PhaseFinished, PhasePlaying, false},
		{Phase("bogus"), PhaseWaiting, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseRoomCode(t *testing.T) {
	code, err := ParseRoomCode(" ab1z ")
	require.NoError(t, err)
	assert.Equal(t, RoomCode("AB1Z"), code)

	for _, bad := range []string{"", "ABC", "ABCDE", "AB-1", "ÄBCD"} {
		_, err := ParseRoomCode(bad)
		assert.ErrorIs(t, err, ErrInvalidCommand, "input %q", bad)
	}
}

func TestRoomRemovePlayerKeepsJoinOrder(t *testing.T) {
	room := &Room{Players: []Player{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	assert.True(t, room.RemovePlayer("b"))
	assert.False(t, room.RemovePlayer("b"))
	assert.Equal(t, []ConnectionID{"a", "c"}, room.PlayerIDs())
}

func TestRoomClone(t *testing.T) {
	room := &Room{
		Code:    "AB12",
		Players: []Player{{ID: "a", DisplayName: "Ann"}},
		Game: &GameState{
			Roles: map[ConnectionID]Role{"a": RoleCrewmate},
		},
	}

	c := room.Clone()
	c.Players[0].Ready = true
	c.Game.Roles["a"] = RoleImposter

	assert.False(t, room.Players[0].Ready)
	assert.Equal(t, RoleCrewmate, room.Game.Roles["a"])
}

func TestTopicRevealFor(t *testing.T) {
	topic := Topic{Name: "Kettle", Hint: "Kitchen"}

	assert.Equal(t, topic, topic.RevealFor(RoleCrewmate))
	assert.Equal(t, Topic{Name: "", Hint: "Kitchen"}, topic.RevealFor(RoleImposter))
}

func TestRoleOf(t *testing.T) {
	room := &Room{}
	_, ok := room.RoleOf("a")
	assert.False(t, ok)

	room.Game = &GameState{Roles: map[ConnectionID]Role{"a": RoleImposter}}
	role, ok := room.RoleOf("a")
	assert.True(t, ok)
	assert.Equal(t, RoleImposter, role)
}
