package response

import (
	"time"

	"github.com/mcoot/imposter/internal/model"
)

// Player represents a room member in API responses
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	IsHost bool   `json:"is_host"`
}

// Room is the public view of a room. It never carries roles or the topic.
type Room struct {
	Code      string    `json:"code"`
	Phase     string    `json:"phase"`
	HostID    string    `json:"host_id"`
	Players   []Player  `json:"players"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = Player{
			ID:     string(p.ID),
			Name:   p.DisplayName,
			Ready:  p.Ready,
			IsHost: r.IsHost(p.ID),
		}
	}

	resp := Room{
		Code:      string(r.Code),
		Phase:     string(r.Phase),
		HostID:    string(r.HostID),
		Players:   players,
		CreatedAt: r.Created,
		UpdatedAt: r.Updated,
	}
	if r.Game != nil {
		resp.Category = r.Game.Category
	}
	return resp
}

// Categories lists the built-in topic categories
type Categories struct {
	Categories []string `json:"categories"`
}

// Health is the health check response
type Health struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}
