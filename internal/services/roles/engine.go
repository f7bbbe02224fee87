package roles

import (
	"fmt"

	"github.com/mcoot/imposter/internal/dependencies/random"
	"github.com/mcoot/imposter/internal/model"
)

// MaxImposters caps the imposter count regardless of room size
const MaxImposters = 3

// Assignment is the outcome of dealing roles for one game
type Assignment struct {
	Roles map[model.ConnectionID]model.Role
	Topic model.Topic
}

// Imposters returns the connections dealt the imposter role
func (a *Assignment) Imposters() []model.ConnectionID {
	var ids []model.ConnectionID
	for id, role := range a.Roles {
		if role == model.RoleImposter {
			ids = append(ids, id)
		}
	}
	return ids
}

// Engine deals roles and picks a topic. It holds no state besides its
// random source, so it is safe to share across rooms.
type Engine struct {
	random random.Random
}

// NewEngine creates an Engine drawing from rnd
func NewEngine(rnd random.Random) *Engine {
	return &Engine{random: rnd}
}

// Assign shuffles players uniformly, makes the first imposterCount of them
// imposters and everyone else crewmates, then picks one topic from topics.
func (e *Engine) Assign(players []model.ConnectionID, imposterCount int, topics []model.Topic) (*Assignment, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics to choose from", model.ErrInvalidConfiguration)
	}
	if imposterCount < 1 || imposterCount >= len(players) {
		return nil, fmt.Errorf("%w: %d imposters for %d players", model.ErrInvalidConfiguration, imposterCount, len(players))
	}

	shuffled := make([]model.ConnectionID, len(players))
	copy(shuffled, players)
	random.Shuffle(e.random, shuffled)

	roles := make(map[model.ConnectionID]model.Role, len(shuffled))
	for i, id := range shuffled {
		if i < imposterCount {
			roles[id] = model.RoleImposter
		} else {
			roles[id] = model.RoleCrewmate
		}
	}

	return &Assignment{
		Roles: roles,
		Topic: topics[e.random.Intn(len(topics))],
	}, nil
}

// MaxImpostersFor returns the largest imposter count allowed for n players
func MaxImpostersFor(n int) int {
	return min(MaxImposters, n/2)
}

// ValidateImposterCount checks k against the room size rules used when a
// host starts a game
func ValidateImposterCount(players, k int) error {
	if k < 1 || k > MaxImpostersFor(players) {
		return fmt.Errorf("%w: %d imposters not allowed for %d players (max %d)",
			model.ErrInvalidConfiguration, k, players, MaxImpostersFor(players))
	}
	return nil
}
