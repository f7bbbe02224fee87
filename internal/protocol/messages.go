package protocol

import (
	"encoding/json"

	"github.com/mcoot/imposter/internal/model"
)

// Envelope is the frame for every message in both directions
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound message types beyond the model events
const (
	TypeConnected = "connected"
	TypeReply     = "reply"
	TypeError     = "error"
)

// Message is an outbound frame before encoding
type Message struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// PlayerView is a player as other clients see it
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// ResultView is one row of the end-of-game reveal
type ResultView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// RoomUpdate is the room-update payload
type RoomUpdate struct {
	RoomCode string       `json:"roomCode"`
	Players  []PlayerView `json:"players"`
	HostID   string       `json:"hostId"`
}

// GameStarted is the game-started payload
type GameStarted struct {
	Category       string `json:"category"`
	PlayerCount    int    `json:"playerCount"`
	StartingPlayer string `json:"startingPlayer,omitempty"`
}

// YourRole is the private your-role payload
type YourRole struct {
	Role  string      `json:"role"`
	Theme model.Topic `json:"theme"`
}

// GameEnded is the game-ended payload
type GameEnded struct {
	Results []ResultView `json:"results"`
	Theme   model.Topic  `json:"theme"`
}

// RoomClosed is the room-closed payload
type RoomClosed struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// Reply answers a create-room, join-room or get-my-role request
type Reply struct {
	Success  bool         `json:"success"`
	RoomCode string       `json:"roomCode,omitempty"`
	PlayerID string       `json:"playerId,omitempty"`
	Role     string       `json:"role,omitempty"`
	Theme    *model.Topic `json:"theme,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Connected is sent once when a socket is accepted
type Connected struct {
	PlayerID string `json:"playerId"`
}

// ErrorPayload reports a rejected command
type ErrorPayload struct {
	Command string `json:"command"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlayerViews converts players in join order
func PlayerViews(players []model.Player) []PlayerView {
	views := make([]PlayerView, len(players))
	for i, p := range players {
		views[i] = PlayerView{ID: string(p.ID), Name: p.DisplayName, Ready: p.Ready}
	}
	return views
}

// ResultViews converts the end-of-game results
func ResultViews(results []model.PlayerResult) []ResultView {
	views := make([]ResultView, len(results))
	for i, r := range results {
		views[i] = ResultView{ID: string(r.Player.ID), Name: r.Player.DisplayName, Role: string(r.Role)}
	}
	return views
}

// EventMessage converts a coordinator event to its wire form
func EventMessage(e model.Event) Message {
	msg := Message{Type: string(e.Type)}

	switch p := e.Payload.(type) {
	case model.RoomUpdatePayload:
		msg.Payload = RoomUpdate{
			RoomCode: string(e.RoomCode),
			Players:  PlayerViews(p.Players),
			HostID:   string(p.HostID),
		}
	case model.GameStartedPayload:
		msg.Payload = GameStarted{
			Category:       p.Category,
			PlayerCount:    p.PlayerCount,
			StartingPlayer: p.StartingPlayer,
		}
	case model.YourRolePayload:
		msg.Payload = YourRole{Role: string(p.Role), Theme: p.Topic}
	case model.GameEndedPayload:
		msg.Payload = GameEnded{Results: ResultViews(p.Results), Theme: p.Topic}
	case model.RoomClosedPayload:
		msg.Payload = RoomClosed{RoomCode: string(e.RoomCode), Reason: p.Reason}
	default:
		msg.Payload = p
	}

	return msg
}

// ConnectedMessage greets a new connection with its id
func ConnectedMessage(id model.ConnectionID) Message {
	return Message{Type: TypeConnected, Payload: Connected{PlayerID: string(id)}}
}

// ReplyMessage wraps a reply correlated to request id
func ReplyMessage(id string, r Reply) Message {
	return Message{Type: TypeReply, ID: id, Payload: r}
}

// ErrorMessage wraps a rejection of command
func ErrorMessage(id string, command CommandType, code, message string) Message {
	return Message{
		Type: TypeError,
		ID:   id,
		Payload: ErrorPayload{
			Command: string(command),
			Code:    code,
			Message: message,
		},
	}
}
