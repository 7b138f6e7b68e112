package main

import (
	"context"
	"ctchen222/Chess-Room/internal/api/controller"
	apirepository "ctchen222/Chess-Room/internal/api/repository"
	"ctchen222/Chess-Room/internal/api/service"
	"ctchen222/Chess-Room/internal/config"
	"ctchen222/Chess-Room/internal/db"
	"ctchen222/Chess-Room/internal/hub"
	"ctchen222/Chess-Room/internal/logger"
	"ctchen222/Chess-Room/internal/repository"
	"ctchen222/Chess-Room/internal/room"
	"ctchen222/Chess-Room/internal/rules"
	"ctchen222/Chess-Room/internal/server"
	"ctchen222/Chess-Room/internal/telemetry"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	level, _ := cfg.SlogLevel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()
	logger.Init(level)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		slog.Warn("JWT_SECRET is not set, using the development secret")
	}

	// Initialize SQL database
	conn, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Create repositories. Redis is optional; without it there is no event
	// feed and no presence tracking.
	archiveRepo := repository.NewArchiveRepository(conn)
	userRepo := apirepository.NewUserRepository(conn)
	var (
		eventRepo  repository.EventRepository
		playerRepo repository.PlayerRepository
	)
	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to initialize redis: %v", err)
		}
		defer rdb.Close()
		eventRepo = repository.NewEventRepository(rdb)
		playerRepo = repository.NewPlayerRepository(rdb)
	} else {
		slog.Info("REDIS_CONNSTRING not set, room events and presence are disabled")
	}

	engine := rules.New()

	// Create services and controllers
	userService := service.NewUserService(userRepo, []byte(cfg.JWTSecret))

	// Create hub
	h := hub.NewHub(hub.Options{
		DefaultRoom: cfg.DefaultRoom,
		MaxRooms:    cfg.MaxRooms,
		Room: room.Options{
			Engine:       engine,
			Events:       eventRepo,
			Presence:     playerRepo,
			Archive:      archiveRepo,
			PingInterval: cfg.PingInterval,
		},
	})
	hubDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(hubDone)
	}()

	// Create the Gin-based server
	srv := server.NewServer(server.Options{
		Hub:       h,
		Users:     userService,
		UserCtl:   controller.NewUserController(userService),
		GameCtl:   controller.NewGameController(archiveRepo),
		RoomCtl:   controller.NewRoomController(h, engine, eventRepo),
		StaticDir: cfg.StaticDir,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server started", "http.addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		slog.Warn("Hub did not stop in time")
	}

	slog.Info("Server exiting")
}
