package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/imposter/internal/model"
)

// MaxNameLength is the longest display name accepted, in runes
const MaxNameLength = 32

// CommandType names an inbound command
type CommandType string

const (
	CommandCreateRoom  CommandType = "create-room"
	CommandJoinRoom    CommandType = "join-room"
	CommandToggleReady CommandType = "toggle-ready"
	CommandStartGame   CommandType = "start-game"
	CommandGetMyRole   CommandType = "get-my-role"
	CommandEndGame     CommandType = "end-game"
	CommandRestartGame CommandType = "restart-game"
	CommandLeaveRoom   CommandType = "leave-room"
)

// Command is one of the inbound command payloads below. The set is closed:
// only types in this package implement it.
type Command interface {
	Type() CommandType
	validate() error
}

// CreateRoom opens a room with the sender as host
type CreateRoom struct {
	PlayerName string `json:"playerName"`
}

// JoinRoom adds the sender to an existing room
type JoinRoom struct {
	RoomCode   model.RoomCode `json:"roomCode"`
	PlayerName string         `json:"playerName"`
}

// ToggleReady flips the sender's ready flag
type ToggleReady struct {
	RoomCode model.RoomCode `json:"roomCode"`
}

// StartGame deals roles. Theme, when set, is used as the only topic;
// otherwise the server draws from Category's pool.
type StartGame struct {
	RoomCode      model.RoomCode `json:"roomCode"`
	Category      string         `json:"category"`
	PlayerCount   int            `json:"playerCount,omitempty"`
	ImposterCount int            `json:"imposterCount"`
	Theme         *model.Topic   `json:"theme,omitempty"`
}

// GetMyRole asks for the sender's role in the active game
type GetMyRole struct {
	RoomCode model.RoomCode `json:"roomCode"`
}

// EndGame reveals all roles
type EndGame struct {
	RoomCode model.RoomCode `json:"roomCode"`
}

// RestartGame returns the room to waiting
type RestartGame struct {
	RoomCode model.RoomCode `json:"roomCode"`
}

// LeaveRoom removes the sender from the room
type LeaveRoom struct {
	RoomCode model.RoomCode `json:"roomCode"`
}

func (*CreateRoom) Type() CommandType  { return CommandCreateRoom }
func (*JoinRoom) Type() CommandType    { return CommandJoinRoom }
func (*ToggleReady) Type() CommandType { return CommandToggleReady }
func (*StartGame) Type() CommandType   { return CommandStartGame }
func (*GetMyRole) Type() CommandType   { return CommandGetMyRole }
func (*EndGame) Type() CommandType     { return CommandEndGame }
func (*RestartGame) Type() CommandType { return CommandRestartGame }
func (*LeaveRoom) Type() CommandType   { return CommandLeaveRoom }

func (c *CreateRoom) validate() error {
	name, err := cleanName(c.PlayerName)
	c.PlayerName = name
	return err
}

func (c *JoinRoom) validate() error {
	if err := cleanCode(&c.RoomCode); err != nil {
		return err
	}
	name, err := cleanName(c.PlayerName)
	c.PlayerName = name
	return err
}

func (c *ToggleReady) validate() error { return cleanCode(&c.RoomCode) }
func (c *GetMyRole) validate() error   { return cleanCode(&c.RoomCode) }
func (c *EndGame) validate() error     { return cleanCode(&c.RoomCode) }
func (c *RestartGame) validate() error { return cleanCode(&c.RoomCode) }
func (c *LeaveRoom) validate() error   { return cleanCode(&c.RoomCode) }

func (c *StartGame) validate() error {
	if err := cleanCode(&c.RoomCode); err != nil {
		return err
	}
	c.Category = strings.TrimSpace(c.Category)
	if c.Theme != nil {
		c.Theme.Name = strings.TrimSpace(c.Theme.Name)
		c.Theme.Hint = strings.TrimSpace(c.Theme.Hint)
		if c.Theme.Name == "" {
			return fmt.Errorf("%w: theme name is required", model.ErrInvalidCommand)
		}
	} else if c.Category == "" {
		return fmt.Errorf("%w: category or theme is required", model.ErrInvalidCommand)
	}
	return nil
}

func cleanCode(code *model.RoomCode) error {
	parsed, err := model.ParseRoomCode(string(*code))
	if err != nil {
		return err
	}
	*code = parsed
	return nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: player name is required", model.ErrInvalidCommand)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: player name longer than %d characters", model.ErrInvalidCommand, MaxNameLength)
	}
	return name, nil
}

// newCommand returns an empty command of the given type
func newCommand(t CommandType) (Command, bool) {
	switch t {
	case CommandCreateRoom:
		return &CreateRoom{}, true
	case CommandJoinRoom:
		return &JoinRoom{}, true
	case CommandToggleReady:
		return &ToggleReady{}, true
	case CommandStartGame:
		return &StartGame{}, true
	case CommandGetMyRole:
		return &GetMyRole{}, true
	case CommandEndGame:
		return &EndGame{}, true
	case CommandRestartGame:
		return &RestartGame{}, true
	case CommandLeaveRoom:
		return &LeaveRoom{}, true
	}
	return nil, false
}

// Request is a decoded, validated inbound message
type Request struct {
	ID      string
	Type    CommandType
	Command Command
}

// Decode parses an inbound envelope and validates its payload. Errors wrap
// model.ErrInvalidCommand. When the envelope itself parsed, the returned
// Request carries its id and type even on failure so the caller can reply.
func Decode(data []byte) (*Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidCommand, err)
	}

	t := CommandType(env.Type)
	req := &Request{ID: env.ID, Type: t}

	cmd, ok := newCommand(t)
	if !ok {
		return req, fmt.Errorf("%w: unknown command %q", model.ErrInvalidCommand, env.Type)
	}

	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, cmd); err != nil {
			return req, fmt.Errorf("%w: %s payload: %v", model.ErrInvalidCommand, t, err)
		}
	}
	if err := cmd.validate(); err != nil {
		return req, err
	}

	req.Command = cmd
	return req, nil
}

// Encode wraps a command in an envelope for sending
func Encode(id string, cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(cmd.Type()), ID: id, Payload: payload})
}
