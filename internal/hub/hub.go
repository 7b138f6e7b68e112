package hub

import (
	"context"
	"ctchen222/Chess-Room/internal/hub/types"
	"ctchen222/Chess-Room/internal/room"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

// ErrTooManyRooms is returned when a new room would exceed the configured limit.
var ErrTooManyRooms = errors.New("room limit reached")

// Options configures a Hub.
type Options struct {
	// DefaultRoom is used when a connection names no room. It is never closed.
	DefaultRoom string
	// MaxRooms caps open rooms. Zero means no limit.
	MaxRooms int
	// Room is passed to every room the hub creates.
	Room room.Options
}

// Hub manages all the rooms and routes connections into them.
type Hub struct {
	opts       Options
	mu         sync.RWMutex
	rooms      map[string]*room.Room
	register   chan *types.RegistrationRequest
	unregister chan *types.Departure
}

// NewHub creates a new hub.
func NewHub(opts Options) *Hub {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "lobby"
	}
	return &Hub{
		opts:       opts,
		rooms:      make(map[string]*room.Room),
		register:   make(chan *types.RegistrationRequest),
		unregister: make(chan *types.Departure, 16),
	}
}

// Run starts the hub. Registrations and departures are handled one at a time
// so a room is never handed a connection while it is being closed.
func (h *Hub) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Hub started", "room.default", h.opts.DefaultRoom)
	for {
		select {
		case req := <-h.register:
			h.handleRegistration(req)

		case d := <-h.unregister:
			h.handleDeparture(ctx, d)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) handleRegistration(req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = h.opts.DefaultRoom
	}
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("room.id", roomID),
	))
	defer span.End()

	rm, err := h.roomFor(ctx, roomID)
	if err != nil {
		slog.WarnContext(ctx, "Refusing registration", "player.id", req.Player.ID, "room.id", roomID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room unavailable")
		reply(req, err)
		return
	}

	rm.Connect(ctx, req.Player)
	go rm.ReadPump(req.Player, h.unregister)
	reply(req, nil)
}

// roomFor returns the named room, creating and starting it if needed.
func (h *Hub) roomFor(ctx context.Context, roomID string) (*room.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rm, ok := h.rooms[roomID]; ok {
		return rm, nil
	}
	if h.opts.MaxRooms > 0 && len(h.rooms) >= h.opts.MaxRooms {
		return nil, ErrTooManyRooms
	}
	rm := room.NewRoom(roomID, h.opts.Room)
	h.rooms[roomID] = rm
	go rm.Run()
	slog.InfoContext(ctx, "Room created", "room.id", roomID, "rooms.open", len(h.rooms))
	return rm, nil
}

func (h *Hub) handleDeparture(ctx context.Context, d *types.Departure) {
	ctx, span := tracer.Start(ctx, "hub.handleDeparture", trace.WithAttributes(
		attribute.String("player.id", d.Player.ID),
		attribute.String("room.id", d.RoomID),
	))
	defer span.End()

	if d.RoomID == h.opts.DefaultRoom {
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[d.RoomID]
	if !ok || rm.Len() > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, d.RoomID)
	h.mu.Unlock()

	slog.InfoContext(ctx, "Room closed due to no players", "room.id", d.RoomID)
	go rm.Close()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room.Room)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, rm := range rooms {
		wg.Add(1)
		go func(rm *room.Room) {
			defer wg.Done()
			rm.Close()
		}(rm)
	}
	wg.Wait()
	slog.Info("Hub stopped", "rooms.closed", len(rooms))
}

func reply(req *types.RegistrationRequest, err error) {
	if req.Result == nil {
		return
	}
	select {
	case req.Result <- err:
	default:
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Room looks up an open room.
func (h *Hub) Room(id string) (*room.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rm, ok := h.rooms[id]
	return rm, ok
}

// Snapshot copies the state of an open room.
func (h *Hub) Snapshot(id string) (room.Snapshot, bool) {
	rm, ok := h.Room(id)
	if !ok {
		return room.Snapshot{}, false
	}
	return rm.Snapshot(), true
}

// RoomIDs lists open rooms in name order.
func (h *Hub) RoomIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRoom returns the room used when none is named.
func (h *Hub) DefaultRoom() string {
	return h.opts.DefaultRoom
}
