package main

import (
	"context"
	"fmt"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/config"
	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/logging"
	"schoollend/internal/repository"
	"schoollend/internal/scanner"
	"schoollend/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// application holds the wired repositories and services shared by the commands.
type application struct {
	cfg    *config.Config
	logger *zerolog.Logger
	bus    *events.EventBus
	redis  *redis.Client

	devices      *repository.MemoryDeviceRepository
	reservations *repository.MemoryReservationRepository
	sessions     domain.SessionRepository

	catalog        *service.CatalogService
	wizard         *service.WizardService
	reservationSvc *service.ReservationService
	scanner        *scanner.Scanner
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*application, error) {
	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	seeds, err := catalog.BuildReservations()
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	devices, err := repository.NewMemoryDeviceRepository(catalog.Devices)
	if err != nil {
		return nil, err
	}
	reservations, err := repository.NewMemoryReservationRepository(seeds)
	if err != nil {
		return nil, err
	}

	unavailable, err := cfg.Lending.UnavailableDays()
	if err != nil {
		return nil, err
	}

	app := &application{
		cfg:          cfg,
		logger:       logger,
		bus:          events.NewEventBus(),
		devices:      devices,
		reservations: reservations,
	}
	app.sessions = app.initSessions(ctx)

	app.catalog = service.NewCatalogService(devices, catalog.FAQ, logging.Component(logger, "catalog"))
	app.wizard = service.NewWizardService(app.sessions, devices, reservations, app.bus, service.WizardConfig{
		Rules:        calendar.Rules{MaxDays: cfg.Lending.MaxReservationDays, Unavailable: unavailable},
		SubmitLimit:  cfg.Lending.SubmitRateLimit,
		SubmitWindow: cfg.Lending.SubmitWindowDuration(),
	}, logging.Component(logger, "wizard"))
	app.reservationSvc = service.NewReservationService(reservations, app.bus, logging.Component(logger, "reservations"))
	app.scanner = scanner.New(reservations, app.bus, scanner.Config{
		Delay:    cfg.Scanner.DelayDuration(),
		Timeout:  cfg.Scanner.TimeoutDuration(),
		MockCode: cfg.Scanner.MockCode,
	}, logging.Component(logger, "scanner"))

	logger.Info().
		Int("devices", len(catalog.Devices)).
		Int("reservations", len(seeds)).
		Int("faq", len(catalog.FAQ)).
		Msg("catalog loaded")
	return app, nil
}

// initSessions prefers Redis with an in-memory fallback; without an address sessions stay in memory.
func (a *application) initSessions(ctx context.Context) domain.SessionRepository {
	ttl := a.cfg.Lending.SessionTTLDuration()
	memory := repository.NewMemorySessionRepository(ttl)
	if a.cfg.Redis.Address == "" {
		a.logger.Info().Msg("redis not configured, wizard sessions kept in memory")
		return memory
	}

	a.redis = repository.NewRedisClient(a.cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, a.redis); err != nil {
		a.logger.Warn().Err(err).Msg("redis connection failed, starting on memory fallback")
	} else {
		a.logger.Info().Str("addr", a.cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisSessionRepository(a.redis, ttl)
	return repository.NewFailoverSessionRepository(primary, memory, logging.Component(a.logger, "sessions"))
}

// ready reports whether the session store is reachable.
func (a *application) ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return repository.Ping(ctx, a.redis)
}

func (a *application) close() {
	if a.redis == nil {
		return
	}
	if err := repository.Close(a.redis); err != nil {
		a.logger.Warn().Err(err).Msg("redis close failed")
	}
}
