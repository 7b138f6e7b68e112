package server

import (
	"context"
	"ctchen222/Chess-Room/internal/api/controller"
	"ctchen222/Chess-Room/internal/api/response"
	"ctchen222/Chess-Room/internal/api/service"
	"ctchen222/Chess-Room/internal/hub"
	"ctchen222/Chess-Room/internal/hub/types"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/internal/validator"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

const (
	registrationTimeout = 5 * time.Second

	// Maximum frame size accepted from a peer.
	maxMessageSize = 4096
)

// Options wires the server to the hub and the HTTP controllers. Nil
// controllers leave their routes unregistered.
type Options struct {
	Hub       *hub.Hub
	Users     service.UserService
	UserCtl   *controller.UserController
	GameCtl   *controller.GameController
	RoomCtl   *controller.RoomController
	StaticDir string
}

type Server struct {
	hub      *hub.Hub
	users    service.UserService
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

func NewServer(opts Options) *Server {
	s := &Server{
		hub:   opts.Hub,
		users: opts.Users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes(opts)
	return s
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	if opts.UserCtl != nil {
		users := api.Group("/users")
		users.POST("/register", opts.UserCtl.Register)
		users.POST("/login", opts.UserCtl.Login)
		users.POST("/guest", opts.UserCtl.GuestLogin)
	}
	if opts.RoomCtl != nil {
		api.GET("/rooms", opts.RoomCtl.List)
		api.GET("/rooms/:id", opts.RoomCtl.Get)
		api.GET("/rooms/:id/board.png", opts.RoomCtl.Board)
		api.GET("/rooms/:id/events", opts.RoomCtl.Events)
	}
	if opts.GameCtl != nil {
		api.GET("/games", opts.GameCtl.List)
		api.GET("/games/:id", opts.GameCtl.Get)
	}

	if opts.StaticDir != "" {
		if info, err := os.Stat(opts.StaticDir); err == nil && info.IsDir() {
			r.NoRoute(gin.WrapH(http.FileServer(http.Dir(opts.StaticDir))))
		} else {
			slog.Warn("Static directory not found, serving API only", "static.dir", opts.StaticDir)
		}
	}
	return r
}

// handleWebSocket resolves who is connecting, upgrades the connection and
// hands it to the hub. The room's read pump owns the connection afterwards.
func (s *Server) handleWebSocket(c *gin.Context) {
	r := c.Request
	ctx, span := tracer.Start(r.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", r.URL.String()),
		attribute.String("http.method", r.Method),
	))
	defer span.End()

	roomID := c.Query("room")
	if roomID == "" {
		roomID = s.hub.DefaultRoom()
	}
	if err := validator.GetValidator().Var(roomID, "room"); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := validator.GetValidator().Var(c.Query("name"), "omitempty,max=32,printascii"); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "invalid name")
		return
	}

	playerID, name, err := s.identify(c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unauthorized")
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}
	span.SetAttributes(attribute.String("player.id", playerID), attribute.String("room.id", roomID))

	conn, err := s.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	p := player.NewPlayer(playerID, name, conn)
	req := &types.RegistrationRequest{
		Player: p,
		RoomID: roomID,
		Ctx:    ctx,
		Result: make(chan error, 1),
	}

	if err := s.register(ctx, req); err != nil {
		slog.WarnContext(ctx, "Registration failed", "player.id", playerID, "room.id", roomID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Registration failed")
		closeWithReason(conn, err)
	}
}

func (s *Server) register(ctx context.Context, req *types.RegistrationRequest) error {
	timer := time.NewTimer(registrationTimeout)
	defer timer.Stop()

	select {
	case s.hub.Register() <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("hub is not accepting connections")
	}

	select {
	case err := <-req.Result:
		return err
	case <-timer.C:
		return errors.New("timed out waiting for room")
	}
}

// identify returns the connecting player's ID and display name. A token
// wins over a bare name; without either a random guest is made up.
func (s *Server) identify(c *gin.Context) (string, string, error) {
	if token := c.Query("token"); token != "" {
		if s.users == nil {
			return "", "", errors.New("token login is disabled")
		}
		id, err := s.users.ParseToken(token)
		if err != nil {
			return "", "", err
		}
		return id.PlayerID, id.Name, nil
	}
	return uuid.New().String(), c.Query("name"), nil
}

func closeWithReason(conn *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	if errors.Is(err, hub.ErrTooManyRooms) {
		code = websocket.CloseTryAgainLater
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()), deadline)
	_ = conn.Close()
}
