package room

import (
	"ctchen222/Chess-Room/internal/game"
	"time"
)

// Seat identifies who holds a seat.
type Seat struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// Snapshot is a read-only copy of a room for HTTP consumers.
type Snapshot struct {
	RoomID      string             `json:"room_id"`
	GameID      string             `json:"game_id"`
	Position    string             `json:"position"`
	Seq         uint64             `json:"seq"`
	SideToMove  game.Color         `json:"side_to_move"`
	GameOver    bool               `json:"game_over"`
	Result      game.Result        `json:"result"`
	Termination string             `json:"termination,omitempty"`
	White       *Seat              `json:"white,omitempty"`
	Black       *Seat              `json:"black,omitempty"`
	Spectators  int                `json:"spectators"`
	History     []game.AppliedMove `json:"history"`
	StartedAt   time.Time          `json:"started_at"`
}

// Snapshot copies the room's current state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		RoomID:    r.ID,
		GameID:    r.state.ID,
		Position:  r.state.Position,
		Seq:       r.state.Seq,
		History:   append([]game.AppliedMove{}, r.state.History...),
		StartedAt: r.state.StartedAt,
		Result:    game.ResultUnfinished,
	}
	if side, err := r.engine.SideToMove(r.state.Position); err == nil {
		s.SideToMove = side
	}
	if r.engine.IsGameOver(r.state.Position) {
		s.GameOver = true
		s.Result, s.Termination = r.engine.Outcome(r.state.Position)
	}
	for _, p := range r.Players {
		switch {
		case p.Role == game.RoleWhite && r.seats[game.RoleWhite] == p:
			s.White = &Seat{PlayerID: p.ID, Name: p.Name}
		case p.Role == game.RoleBlack && r.seats[game.RoleBlack] == p:
			s.Black = &Seat{PlayerID: p.ID, Name: p.Name}
		default:
			s.Spectators++
		}
	}
	return s
}
