package controller

import (
	"ctchen222/Chess-Room/internal/api/response"
	"ctchen222/Chess-Room/internal/repository"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GameController serves archived games.
type GameController struct {
	archive repository.ArchiveRepository
}

// NewGameController creates a GameController. A nil archive makes every
// endpoint answer 503.
func NewGameController(archive repository.ArchiveRepository) *GameController {
	return &GameController{archive: archive}
}

// List handles GET /api/games?room=<id>&limit=<n>.
func (gc *GameController) List(c *gin.Context) {
	if gc.archive == nil {
		response.ErrorResponse(c, http.StatusServiceUnavailable, "game archive is disabled")
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	games, err := gc.archive.List(c.Request.Context(), c.Query("room"), limit)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to list archived games", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to list games")
		return
	}
	response.SuccessResponseList(c, games)
}

// Get handles GET /api/games/:id. With ?format=pgn the raw PGN is returned.
func (gc *GameController) Get(c *gin.Context) {
	if gc.archive == nil {
		response.ErrorResponse(c, http.StatusServiceUnavailable, "game archive is disabled")
		return
	}

	g, err := gc.archive.FindByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.ErrorResponse(c, http.StatusNotFound, "game not found")
		return
	case err != nil:
		slog.ErrorContext(c.Request.Context(), "Failed to load archived game", "game.id", c.Param("id"), "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to load game")
		return
	}

	if c.Query("format") == "pgn" {
		c.Header("Content-Disposition", "attachment; filename=\""+g.ID+".pgn\"")
		c.Data(http.StatusOK, "application/x-chess-pgn", []byte(g.PGN))
		return
	}
	response.SuccessResponse(c, g)
}

func queryLimit(c *gin.Context) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
