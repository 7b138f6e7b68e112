package types

import (
	"context"
	"ctchen222/Chess-Room/internal/player"
)

// RegistrationRequest represents a request to seat a connection in a room.
type RegistrationRequest struct {
	Player *player.Player
	RoomID string
	Ctx    context.Context
	// Result receives the room's verdict once the connection is attached.
	// A nil error means the room's read pump now owns the connection.
	Result chan error
}

// PlayerMove is one raw frame read from a player's connection.
type PlayerMove struct {
	Player  *player.Player
	Message []byte
}

// Departure tells the hub a connection has left a room.
type Departure struct {
	RoomID string
	Player *player.Player
}
