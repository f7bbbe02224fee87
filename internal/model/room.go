package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 4
	// RoomCodeAlphabet is the characters used in room codes
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomCode is the short human-typeable identifier players use to join a room
type RoomCode string

// NormalizeRoomCode upper-cases user input; codes are case-insensitive
func NormalizeRoomCode(s string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseRoomCode normalizes s and checks it is a well-formed room code
func ParseRoomCode(s string) (RoomCode, error) {
	code := NormalizeRoomCode(s)
	if len(code) != RoomCodeLength {
		return "", fmt.Errorf("%w: room code must be %d characters", ErrInvalidCommand, RoomCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, r) {
			return "", fmt.Errorf("%w: room code contains %q", ErrInvalidCommand, r)
		}
	}
	return code, nil
}

// Phase represents the coarse state of a room
type Phase string

const (
	PhaseWaiting  Phase = "waiting"  // Gathering players, no game active
	PhasePlaying  Phase = "playing"  // Roles assigned, round in progress
	PhaseFinished Phase = "finished" // Roles revealed, waiting for restart
)

// CanTransitionTo reports whether the room may move from p to target
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseWaiting:
		return target == PhasePlaying
	case PhasePlaying:
		return target == PhaseFinished || target == PhaseWaiting
	case PhaseFinished:
		return target == PhaseWaiting
	}
	return false
}

// Room is one session of the game. Players are kept in join order so host
// transfer always picks the earliest remaining joiner.
type Room struct {
	Code    RoomCode
	HostID  ConnectionID
	Phase   Phase
	Players []Player
	Game    *GameState // nil while Phase is waiting
	Created time.Time
	Updated time.Time
}

// GameState holds the fields that only exist once a game has started
type GameState struct {
	Category       string
	ImposterCount  int
	Topic          Topic
	Roles          map[ConnectionID]Role
	StartingPlayer ConnectionID
}

// GetPlayer returns the player with the given connection, or nil if absent
func (r *Room) GetPlayer(id ConnectionID) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether the connection is a member of the room
func (r *Room) HasPlayer(id ConnectionID) bool {
	return r.GetPlayer(id) != nil
}

// IsHost reports whether the connection is the current host
func (r *Room) IsHost(id ConnectionID) bool {
	return r.HostID == id
}

// PlayerIDs returns the member connection ids in join order
func (r *Room) PlayerIDs() []ConnectionID {
	ids := make([]ConnectionID, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// RemovePlayer drops the player from the room and reports whether it was present
func (r *Room) RemovePlayer(id ConnectionID) bool {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = slices.Delete(r.Players, i, i+1)
			return true
		}
	}
	return false
}

// RoleOf returns the role assigned to the connection in the current game
func (r *Room) RoleOf(id ConnectionID) (Role, bool) {
	if r.Game == nil {
		return "", false
	}
	role, ok := r.Game.Roles[id]
	return role, ok
}

// Clone returns a deep copy so callers never share state with the store
func (r *Room) Clone() *Room {
	c := *r
	c.Players = slices.Clone(r.Players)
	if r.Game != nil {
		g := *r.Game
		g.Roles = make(map[ConnectionID]Role, len(r.Game.Roles))
		for id, role := range r.Game.Roles {
			g.Roles[id] = role
		}
		c.Game = &g
	}
	return &c
}
