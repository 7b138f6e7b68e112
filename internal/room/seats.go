package room

import (
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
)

var seatOrder = []game.Role{game.RoleWhite, game.RoleBlack}

// assignSeat gives p the first free seat, or makes it a spectator. Callers hold mu.
func (r *Room) assignSeat(p *player.Player) game.Role {
	for _, role := range seatOrder {
		if _, taken := r.seats[role]; !taken {
			r.seats[role] = p
			return role
		}
	}
	return game.RoleSpectator
}

// releaseSeat frees the seat held by p, if any. Callers hold mu.
func (r *Room) releaseSeat(p *player.Player) bool {
	if !p.Role.IsSeat() || r.seats[p.Role] != p {
		return false
	}
	delete(r.seats, p.Role)
	return true
}

// seatName returns the display name of a seat's holder, or "?".
func (r *Room) seatName(role game.Role) string {
	if p, ok := r.seats[role]; ok {
		return p.Name
	}
	return "?"
}
