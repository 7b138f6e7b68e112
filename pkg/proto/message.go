package proto

import "ctchen222/Chess-Room/internal/game"

// Client to server message types.
const (
	TypeMove    = "move"
	TypeNewGame = "newGame"
	TypeSync    = "sync"
)

// Server to client message types. TypeMove and TypeNewGame are shared.
const (
	TypeRole        = "role"
	TypeState       = "state"
	TypeInvalidMove = "invalidMove"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type string     `json:"type" validate:"required,oneof=move newGame sync"`
	Move *game.Move `json:"move,omitempty" validate:"required_if=Type move"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type     string     `json:"type" validate:"required"`
	Role     game.Role  `json:"role,omitempty"`
	Position string     `json:"position,omitempty"`
	Seq      uint64     `json:"seq,omitempty"`
	Move     *game.Move `json:"move,omitempty"`
	SAN      string     `json:"san,omitempty"`
	Color    game.Color `json:"color,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// RoleMessage tells one connection which seat it holds.
func RoleMessage(role game.Role) ServerToClientMessage {
	return ServerToClientMessage{Type: TypeRole, Role: role}
}

// StateMessage carries the full position.
func StateMessage(position string, seq uint64) ServerToClientMessage {
	return ServerToClientMessage{Type: TypeState, Position: position, Seq: seq}
}

// MoveMessage announces a committed move.
func MoveMessage(applied game.AppliedMove, seq uint64) ServerToClientMessage {
	mv := applied.Move
	return ServerToClientMessage{
		Type:  TypeMove,
		Move:  &mv,
		SAN:   applied.SAN,
		Color: applied.Color,
		Seq:   seq,
	}
}

// NewGameMessage announces a reset to the initial position.
func NewGameMessage(position string, seq uint64) ServerToClientMessage {
	return ServerToClientMessage{Type: TypeNewGame, Position: position, Seq: seq}
}

// InvalidMoveMessage rejects a proposal. Only the proposer receives it.
func InvalidMoveMessage(move game.Move, reason string) ServerToClientMessage {
	return ServerToClientMessage{Type: TypeInvalidMove, Move: &move, Reason: reason}
}
