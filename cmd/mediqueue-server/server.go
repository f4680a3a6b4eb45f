package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/config"
	"github.com/mediqueue/mediqueue/internal/domain/billing"
	"github.com/mediqueue/mediqueue/internal/domain/clinic"
	"github.com/mediqueue/mediqueue/internal/domain/patient"
	"github.com/mediqueue/mediqueue/internal/domain/queue"
	"github.com/mediqueue/mediqueue/internal/domain/scheduling"
	"github.com/mediqueue/mediqueue/internal/platform/auth"
	"github.com/mediqueue/mediqueue/internal/platform/cache"
	"github.com/mediqueue/mediqueue/internal/platform/datastore"
	"github.com/mediqueue/mediqueue/internal/platform/db"
	"github.com/mediqueue/mediqueue/internal/platform/middleware"
	"github.com/mediqueue/mediqueue/internal/platform/notification"
	"github.com/mediqueue/mediqueue/internal/platform/prefs"
	"github.com/mediqueue/mediqueue/internal/platform/telemetry"
	"github.com/mediqueue/mediqueue/internal/platform/websocket"
)

const poolStatsInterval = 15 * time.Second

// app holds the wired server and the long-lived pieces runServer drives.
type app struct {
	e       *echo.Echo
	client  *datastore.Client
	bus     *notification.Bus
	hub     *websocket.Hub
	metrics *telemetry.Metrics
}

// newApp wires every route. pool and rdb may be nil: without a pool the API
// answers setup_required, without Redis the queue cache and preferences are
// disabled.
func newApp(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client) *app {
	client := newClient(cfg, pool, logger)
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	bus := notification.NewBus(nil)
	hub := websocket.NewHub(logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger, cfg.IsDev()))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Clinic-ID"},
	}))
	e.Use(datastore.RequireStore(client,
		"/api/v1/notifications",
		"/api/v1/preferences",
		"/api/v1/auth",
		"/api/v1/ws",
	))

	// Auth middleware
	jwtCfg := jwtConfig(cfg)
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(db.ClinicMiddleware(cfg.ClinicID))

	// Infrastructure
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())
	datastore.NewHandler(client).RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")

	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}

	accounts := []auth.Account{{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Roles:        []string{auth.RoleAdmin},
	}}
	auth.NewLoginHandler(jwtCfg, cfg.ClinicID, accounts...).RegisterRoutes(apiV1)

	kv := cache.New(rdb, "mediqueue:", 0)
	prefs.NewHandler(prefs.NewStore(kv)).RegisterRoutes(apiV1)
	notification.NewHandler(bus).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Domain services. Repositories run on the datastore client so every
	// query fails with ErrNotConfigured instead of panicking when no pool
	// exists.
	clinicSvc := clinic.NewService(
		clinic.NewDepartmentRepoPG(client),
		clinic.NewDoctorRepoPG(client),
		clinic.NewSettingRepoPG(client),
	)
	clinic.NewHandler(clinicSvc, client).RegisterRoutes(apiV1)

	patientSvc := patient.NewService(
		patient.NewPatientRepoPG(client),
		patient.NewHistoryRepoPG(client),
		clinicSvc,
		clinic.DefaultClinicName,
	)
	patient.NewHandler(patientSvc, client).RegisterRoutes(apiV1)

	queueSvc := queue.NewService(queue.NewVisitRepoPG(client), patientSvc, clinicSvc, cfg.ClinicID,
		queue.WithCache(cache.New(rdb, "mediqueue:queue:", cfg.QueueCacheTTL)),
		queue.WithEvents(hub),
		queue.WithNotifications(bus),
		queue.WithMetrics(metrics),
	)
	queue.NewHandler(queueSvc, client).RegisterRoutes(apiV1, middleware.RateLimit(rateCfg))

	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(client), patientSvc, clinicSvc, bus)
	scheduling.NewHandler(schedulingSvc, client).RegisterRoutes(apiV1)

	billingSvc := billing.NewService(billing.NewTransactionRepoPG(client), billing.NewVisitRepoPG(client), clinicSvc,
		billing.WithNotifications(bus),
		billing.WithEvents(hub),
		billing.WithMetrics(metrics),
	)
	billing.NewHandler(billingSvc, client).RegisterRoutes(apiV1)

	return &app{e: e, client: client, bus: bus, hub: hub, metrics: metrics}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	if pool == nil {
		logger.Warn().Msg("DATABASE_URL / DATABASE_ACCESS_KEY not set, starting in setup-required mode")
	} else {
		defer pool.Close()
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, queue cache and preferences disabled")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
	}

	a := newApp(cfg, logger, pool, rdb)
	go a.client.Probe(ctx)
	go websocket.Bridge(ctx, a.bus, a.hub)
	if pool != nil {
		go reportPoolStats(ctx, pool, a.metrics)
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("clinic", cfg.ClinicID).Msg("starting server")
		if err := a.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool, m *telemetry.Metrics) {
	t := time.NewTicker(poolStatsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := db.GetPoolStats(pool)
			m.SetDBConnections(s.TotalConns, s.IdleConns, s.AcquiredConns)
		}
	}
}
