package model

// EventType identifies an outbound notification
type EventType string

const (
	EventRoomUpdate  EventType = "room-update"
	EventGameStarted EventType = "game-started"
	EventYourRole    EventType = "your-role"
	EventGameEnded   EventType = "game-ended"
	EventRoomClosed  EventType = "room-closed"
)

// Event is a notification addressed to a whole room or a single connection
type Event struct {
	Type     EventType
	RoomCode RoomCode
	Payload  any // Type-specific data
}

// RoomUpdatePayload is the membership snapshot sent after any membership,
// ready or host change
type RoomUpdatePayload struct {
	Players []Player
	HostID  ConnectionID
}

// GameStartedPayload announces a started round to the whole room
type GameStartedPayload struct {
	Category       string
	PlayerCount    int
	StartingPlayer string // Display name of who speaks first
}

// YourRolePayload is the private role reveal, already redacted for imposters
type YourRolePayload struct {
	Role  Role
	Topic Topic
}

// GameEndedPayload reveals every role and the topic
type GameEndedPayload struct {
	Results []PlayerResult
	Topic   Topic
}

// RoomClosedPayload tells members the room no longer exists
type RoomClosedPayload struct {
	Reason string
}
