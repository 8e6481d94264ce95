package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/decred/slog"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pfrances/transcendence-back/ponggame"
	"github.com/pfrances/transcendence-back/server/gamedb"
)

// MatchHistorian serves the per-player match history query.
type MatchHistorian interface {
	MatchHistory(ctx context.Context, player ponggame.PlayerID) ([]gamedb.MatchHistoryEntry, error)
}

// Config wires the transport layer.
type Config struct {
	// HTTPAddr is the fiber REST listener address.
	HTTPAddr string
	// WSAddr is the websocket listener address.
	WSAddr string

	Coordinator *ponggame.Coordinator
	Hub         *Hub
	History     MatchHistorian
	Log         slog.Logger
}

// Server exposes the engine over two listeners: a REST API for the
// matchmaking actions and a websocket endpoint for the event stream.
type Server struct {
	cfg     Config
	coord   *ponggame.Coordinator
	hub     *Hub
	history MatchHistorian
	log     slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return &Server{
		cfg:     cfg,
		coord:   cfg.Coordinator,
		hub:     cfg.Hub,
		history: cfg.History,
		log:     cfg.Log,
	}
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.registerRoutes(app)
	return app
}

// Run serves both listeners until the context is canceled or either
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	app := s.newApp()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	wsSrv := &http.Server{
		Addr:        s.cfg.WSAddr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Infof("REST API listening on %s", s.cfg.HTTPAddr)
		if err := app.Listen(s.cfg.HTTPAddr); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.log.Infof("websocket gateway listening on %s", s.cfg.WSAddr)
		if err := wsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.ShutdownWithContext(shutdownCtx)
		_ = wsSrv.Shutdown(shutdownCtx)
		return gctx.Err()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
