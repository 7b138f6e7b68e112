package room

import (
	"context"
	"ctchen222/Chess-Room/internal/hub/types"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/pkg/proto"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// broadcast writes a message to every connected player, one after another.
// Callers hold mu, so all connections see messages in commit order.
func (r *Room) broadcast(ctx context.Context, message proto.ServerToClientMessage) {
	ctx, span := tracer.Start(ctx, "room.Broadcast", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("message.type", message.Type),
	))
	defer span.End()

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	for _, p := range r.Players {
		if p.Status != player.StatusConnected {
			continue
		}
		if err := r.write(p, websocket.TextMessage, data); err != nil {
			slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error writing message to player")
		}
	}
}

// sendTo writes a message to one player. Callers hold mu.
func (r *Room) sendTo(ctx context.Context, p *player.Player, message proto.ServerToClientMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		return
	}
	if p.Status != player.StatusConnected {
		return
	}
	if err := r.write(p, websocket.TextMessage, data); err != nil {
		slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "message.type", message.Type, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func (r *Room) ping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if p.Status != player.StatusConnected {
			continue
		}
		if err := r.write(p, websocket.PingMessage, nil); err != nil {
			slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", p.ID, "error", err)
		}
	}
}

// write sends one frame to p under a write deadline. A failed write closes
// the connection, which ends p's read pump and frees its seat. Callers hold mu.
func (r *Room) write(p *player.Player, messageType int, data []byte) error {
	err := p.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err == nil {
		err = p.Conn.WriteMessage(messageType, data)
	}
	if err != nil {
		p.Status = player.StatusDisconnected
		_ = p.Conn.Close()
	}
	return err
}

// ReadPump pumps frames from p's connection into the room loop. When the
// connection ends it disconnects p and reports the departure on leave.
func (r *Room) ReadPump(p *player.Player, leave chan<- *types.Departure) {
	ctx, span := tracer.Start(context.Background(), "room.ReadPump", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	defer func() {
		p.Conn.Close()
		r.Disconnect(ctx, p)
		if leave == nil {
			return
		}
		select {
		case leave <- &types.Departure{RoomID: r.ID, Player: p}:
		case <-r.Done:
		}
	}()

	_ = p.Conn.SetReadDeadline(time.Now().Add(r.pongWait))
	p.Conn.SetPongHandler(func(string) error {
		return p.Conn.SetReadDeadline(time.Now().Add(r.pongWait))
	})

	for {
		_, msg, err := p.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "Player connection error", "player.id", p.ID, "room.id", r.ID, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "Player connection error")
			}
			return
		}
		select {
		case r.incomingMoves <- &types.PlayerMove{Player: p, Message: msg}:
		case <-r.Done:
			return
		}
	}
}
