package model

// Role is the hidden part a player is dealt for one game
type Role string

const (
	RoleImposter Role = "imposter"
	RoleCrewmate Role = "crewmate"
)

// Topic is the secret subject of a round
type Topic struct {
	Name string `json:"name"`
	Hint string `json:"hint"`
}

// RevealFor returns the view of the topic a holder of role may see.
// Imposters only ever receive the hint.
func (t Topic) RevealFor(role Role) Topic {
	if role == RoleImposter {
		return Topic{Name: "", Hint: t.Hint}
	}
	return t
}

// PlayerResult pairs a player with the role they held
type PlayerResult struct {
	Player Player
	Role   Role
}
