package model

// ConnectionID is the opaque identity of one live client connection
type ConnectionID string

// Player is a room member. Names are client supplied and not unique.
type Player struct {
	ID          ConnectionID
	DisplayName string
	Ready       bool
}
