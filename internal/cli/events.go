package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
)

// ServerEvent is one inbound frame as printed in json mode
type ServerEvent struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PrintEnvelope writes one inbound frame from the server
func (o *Output) PrintEnvelope(env protocol.Envelope) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(ServerEvent{
			Time:    time.Now(),
			Type:    env.Type,
			ID:      env.ID,
			Payload: env.Payload,
		})
		_, _ = fmt.Fprintln(o.w, string(data))
		return
	}

	if err := o.printEnvelopeText(env); err != nil {
		o.printf("%s: %s\n", env.Type, string(env.Payload))
	}
}

func (o *Output) printEnvelopeText(env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeConnected:
		var p protocol.Connected
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printf("Connected as %s\n", p.PlayerID)

	case protocol.TypeReply:
		var p protocol.Reply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printReply(p)

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printf("Error: %s (%s)\n", p.Message, p.Code)

	case string(model.EventRoomUpdate):
		var p protocol.RoomUpdate
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printRoomUpdate(p)

	case string(model.EventGameStarted):
		var p protocol.GameStarted
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printf("Game started: %s, %d players\n", p.Category, p.PlayerCount)
		if p.StartingPlayer != "" {
			o.printf("%s goes first\n", p.StartingPlayer)
		}

	case string(model.EventYourRole):
		var p protocol.YourRole
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printRole(p.Role, p.Theme)

	case string(model.EventGameEnded):
		var p protocol.GameEnded
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printf("Game over. The topic was %s (%s)\n", p.Theme.Name, p.Theme.Hint)
		for _, r := range p.Results {
			o.printf("  - %s: %s\n", r.Name, r.Role)
		}

	case string(model.EventRoomClosed):
		var p protocol.RoomClosed
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		o.printf("Room %s closed (%s)\n", p.RoomCode, p.Reason)

	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}

func (o *Output) printReply(r protocol.Reply) {
	switch {
	case !r.Success:
		o.printf("Error: %s\n", r.Error)
	case r.Role != "" && r.Theme != nil:
		o.printRole(r.Role, *r.Theme)
	case r.RoomCode != "":
		o.printf("In room %s\n", r.RoomCode)
	}
}

func (o *Output) printRole(role string, topic model.Topic) {
	if role == string(model.RoleImposter) {
		o.printf("You are the IMPOSTER. Hint: %s\n", topic.Hint)
		return
	}
	o.printf("You are a %s. Topic: %s\n", role, topic.Name)
}

func (o *Output) printRoomUpdate(u protocol.RoomUpdate) {
	names := make([]string, len(u.Players))
	for i, p := range u.Players {
		var tags []string
		if p.ID == u.HostID {
			tags = append(tags, "host")
		}
		if p.Ready {
			tags = append(tags, "ready")
		}
		names[i] = p.Name
		if len(tags) > 0 {
			names[i] += " (" + strings.Join(tags, ", ") + ")"
		}
	}
	o.printf("Room %s: %s\n", u.RoomCode, strings.Join(names, ", "))
}
