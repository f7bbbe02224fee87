package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrInvalidPhase        = errors.New("command not valid in current phase")
	ErrNotHost             = errors.New("player is not the host")
	ErrNotInRoom           = errors.New("player is not in room")
	ErrAlreadyInRoom       = errors.New("player is already in room")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")
	ErrRoomCodeExhausted   = errors.New("could not allocate a free room code")

	// Role assignment errors
	ErrInvalidConfiguration = errors.New("invalid game configuration")

	// Catalog errors
	ErrUnknownCategory = errors.New("unknown category")

	// Protocol errors
	ErrInvalidCommand = errors.New("invalid command")
)
