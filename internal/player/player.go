package player

import (
	"ctchen222/Chess-Room/internal/game"
	"time"
)

//go:generate mockgen -destination=mocks/mock_connection.go -package=mocks ctchen222/Chess-Room/internal/player Connection

// Connection is an interface that abstracts the websocket connection.
// *websocket.Conn from gorilla satisfies it.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Status is the transport state of a player's connection.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Player represents one connection in a room. Its Role is assigned by the
// room on connect and only read elsewhere.
type Player struct {
	ID       string
	Name     string
	Conn     Connection
	Role     game.Role
	Status   Status
	LastSeen time.Time
}

// NewPlayer wraps a connection. Name falls back to the ID.
func NewPlayer(id, name string, conn Connection) *Player {
	if name == "" {
		name = id
	}
	return &Player{
		ID:       id,
		Name:     name,
		Conn:     conn,
		Status:   StatusConnected,
		LastSeen: time.Now(),
	}
}
