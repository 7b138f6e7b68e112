package events

import (
	"ctchen222/Chess-Room/internal/game"
	"encoding/json"
	"fmt"
	"time"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeMoveApplied  = "move_applied"
	TypeGameReset    = "game_reset"
	TypeSeatChanged  = "seat_changed"
	TypeGameFinished = "game_finished"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	RoomID  string          `json:"room_id"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// MoveAppliedPayload is the payload for the "move_applied" event.
type MoveAppliedPayload struct {
	GameID   string `json:"game_id"`
	Move     string `json:"move"`
	SAN      string `json:"san"`
	Color    string `json:"color"`
	Position string `json:"position"`
	Seq      uint64 `json:"seq"`
}

// GameResetPayload is the payload for the "game_reset" event.
type GameResetPayload struct {
	PreviousGameID string `json:"previous_game_id"`
	GameID         string `json:"game_id"`
	RequestedBy    string `json:"requested_by"`
	Seq            uint64 `json:"seq"`
}

// SeatChangedPayload is the payload for the "seat_changed" event.
type SeatChangedPayload struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Role     game.Role `json:"role"`
	Joined   bool      `json:"joined"`
}

// GameFinishedPayload is the payload for the "game_finished" event.
type GameFinishedPayload struct {
	GameID      string      `json:"game_id"`
	Result      game.Result `json:"result"`
	Termination string      `json:"termination"`
}

// New builds an event with a marshalled payload.
func New(eventType, roomID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, RoomID: roomID, At: time.Now().UTC(), Payload: raw}, nil
}
