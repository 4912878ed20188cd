package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/adapters/command"
	"github.com/okian/speedhud/internal/adapters/http/api"
	"github.com/okian/speedhud/internal/adapters/http/swagger"
	"github.com/okian/speedhud/internal/adapters/hud"
	"github.com/okian/speedhud/internal/adapters/mq/worker"
	"github.com/okian/speedhud/internal/adapters/repository"
	"github.com/okian/speedhud/internal/adapters/world"
	"github.com/okian/speedhud/internal/app"
	"github.com/okian/speedhud/internal/config"
	"github.com/okian/speedhud/pkg/logger"
)

// service owns every long-lived component of the server.
type service struct {
	cfg      *config.Config
	log      logger.Logger
	world    *world.Registry
	hub      *hud.Hub
	pool     *worker.Pool
	store    *repository.Leaderboard
	engine   *app.Engine
	commands *command.Dispatcher
	mux      *http.ServeMux
}

// newService wires the components without starting any goroutines.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service, error) {
	for alias, names := range cfg.SharedAliases() {
		log.Warn(ctx, "subcommands share an alias; the first in match order wins",
			logger.String("alias", alias),
			logger.Any("subcommands", names),
		)
	}

	store, err := repository.Open(ctx, cfg, repository.WithLogger(log.Named("leaderboard")))
	if err != nil {
		return nil, fmt.Errorf("open leaderboard: %w", err)
	}

	s := &service{
		cfg:   cfg,
		log:   log,
		world: world.NewRegistry(),
		hub:   hud.NewHub(hud.WithLogger(log.Named("hud"))),
		store: store,
		mux:   http.NewServeMux(),
	}
	s.pool = worker.NewPool(cfg.DeliveryWorkers, s.hub,
		worker.WithQueueCapacity(cfg.DeliveryQueueSize),
		worker.WithPoolLogger(log.Named("delivery")),
	)

	s.engine, err = app.New(ctx, cfg, store,
		app.WithLogger(log.Named("engine")),
		app.WithProvider(s.world),
		app.WithMessenger(s.pool),
		app.WithReloader(config.Load),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	s.commands = command.NewDispatcher(s.engine, s.world, command.WithLogger(log.Named("command")))
	s.hub.SetCommandHandler(func(ctx context.Context, viewer uuid.UUID, line string) []string {
		return s.commands.Line(ctx, command.Sender{ID: viewer}, line)
	})

	swagger.Register(ctx, s.mux)
	api.NewServer(api.Dependencies{
		World:    s.world,
		Commands: s.commands,
		Engine:   s.engine,
		Stats:    s.engine,
		HUD:      s.hub,
	}).Register(s.mux)

	return s, nil
}

// start launches the delivery pool, the tick loop and the config watcher.
func (s *service) start(ctx context.Context) error {
	s.pool.Start(ctx)
	if err := s.engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	if !s.cfg.WatchConfig {
		return nil
	}
	err := config.Watch(ctx, func(ctx context.Context) {
		if err := s.engine.Reload(ctx); err != nil {
			s.log.Warn(ctx, "config change ignored", logger.Error(err))
		}
	})
	if err != nil {
		s.log.Warn(ctx, "config watch disabled", logger.Error(err))
	}
	return nil
}

// stop tears components down in reverse dependency order.
func (s *service) stop(ctx context.Context) {
	s.engine.Stop()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.log.Warn(ctx, "delivery pool shutdown failed", logger.Error(err))
	}
	s.hub.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warn(ctx, "leaderboard close failed", logger.Error(err))
	}
}
