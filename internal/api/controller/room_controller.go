package controller

import (
	"bytes"
	"ctchen222/Chess-Room/internal/api/response"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/render"
	"ctchen222/Chess-Room/internal/repository"
	"ctchen222/Chess-Room/internal/room"
	"ctchen222/Chess-Room/internal/rules"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RoomDirectory looks up open rooms.
type RoomDirectory interface {
	RoomIDs() []string
	Snapshot(id string) (room.Snapshot, bool)
}

// RoomController serves live room state.
type RoomController struct {
	rooms  RoomDirectory
	engine rules.Engine
	events repository.EventRepository
}

// NewRoomController creates a RoomController. events may be nil, in which
// case the event feed answers 503.
func NewRoomController(rooms RoomDirectory, engine rules.Engine, events repository.EventRepository) *RoomController {
	return &RoomController{rooms: rooms, engine: engine, events: events}
}

// List handles GET /api/rooms.
func (rc *RoomController) List(c *gin.Context) {
	ids := rc.rooms.RoomIDs()
	snapshots := make([]room.Snapshot, 0, len(ids))
	for _, id := range ids {
		if s, ok := rc.rooms.Snapshot(id); ok {
			snapshots = append(snapshots, s)
		}
	}
	response.SuccessResponseList(c, snapshots)
}

// Get handles GET /api/rooms/:id.
func (rc *RoomController) Get(c *gin.Context) {
	s, ok := rc.rooms.Snapshot(c.Param("id"))
	if !ok {
		response.ErrorResponse(c, http.StatusNotFound, "room not found")
		return
	}
	response.SuccessResponse(c, s)
}

// Board handles GET /api/rooms/:id/board.png. ?flip=1 draws from Black's side
// and the last move is highlighted.
func (rc *RoomController) Board(c *gin.Context) {
	s, ok := rc.rooms.Snapshot(c.Param("id"))
	if !ok {
		response.ErrorResponse(c, http.StatusNotFound, "room not found")
		return
	}
	grid, err := rc.engine.Board(s.Position)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Room holds an unreadable position", "room.id", s.RoomID, "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to read position")
		return
	}

	opts := render.Options{}
	opts.Flip, _ = strconv.ParseBool(c.DefaultQuery("flip", "false"))
	if n := len(s.History); n > 0 {
		last := s.History[n-1].Move
		opts.Highlight = []game.Square{last.From, last.To}
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, grid, opts); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to render board", "room.id", s.RoomID, "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to render board")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Events handles GET /api/rooms/:id/events?limit=<n>, newest first.
func (rc *RoomController) Events(c *gin.Context) {
	if rc.events == nil {
		response.ErrorResponse(c, http.StatusServiceUnavailable, "event feed is disabled")
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	evs, err := rc.events.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to read room events", "room.id", c.Param("id"), "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to read events")
		return
	}
	response.SuccessResponseList(c, evs)
}
