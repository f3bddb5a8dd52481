package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adimyra/medilims/internal/config"
	"github.com/adimyra/medilims/internal/domain/appointment"
	"github.com/adimyra/medilims/internal/domain/dashboard"
	"github.com/adimyra/medilims/internal/domain/lab"
	"github.com/adimyra/medilims/internal/domain/patient"
	"github.com/adimyra/medilims/internal/platform/auth"
	"github.com/adimyra/medilims/internal/platform/capability"
	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/internal/platform/errorlog"
	"github.com/adimyra/medilims/internal/platform/middleware"
	"github.com/adimyra/medilims/internal/platform/telemetry"
	"github.com/adimyra/medilims/migrations"
)

const (
	serviceName = "lims-server"
	version     = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "MediLIMS dashboard API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the LIMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

// seedCmd creates demo records through the same services the dashboard calls.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo records",
	}

	seed := func(use, short string, fn func(ctx context.Context, s *services) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					logger := newLogger(cfg)
					svc, err := buildServices(ctx, cfg, pool, nil, logger)
					if err != nil {
						return err
					}
					name, err := fn(ctx, svc)
					if err != nil {
						svc.errs.Record(ctx, "seed "+use, err)
						return err
					}
					fmt.Printf("Created %s\n", name)
					return nil
				})
			},
		}
	}

	cmd.AddCommand(seed("sample", "Create a demo sample with three pending results",
		func(ctx context.Context, s *services) (string, error) {
			smp, err := s.lab.CreateDummySampleWithTests(ctx)
			if err != nil {
				return "", err
			}
			return smp.SampleName, nil
		}))
	cmd.AddCommand(seed("collection-appointment", "Book a demo home collection for today",
		func(ctx context.Context, s *services) (string, error) {
			a, err := s.appointments.CreateDummyCollectionAppointment(ctx)
			if err != nil {
				return "", err
			}
			return a.ID, nil
		}))
	cmd.AddCommand(seed("appointment", "Schedule a demo patient checkup for today",
		func(ctx context.Context, s *services) (string, error) {
			a, err := s.appointments.CreateDummyPatientAppointment(ctx)
			if err != nil {
				return "", err
			}
			return a.ID, nil
		}))

	return cmd
}

func withPool(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: serviceName,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

type services struct {
	caps         *capability.Registry
	errs         *errorlog.Log
	patients     *patient.Service
	lab          *lab.Service
	appointments *appointment.Service
	dashboard    *dashboard.Service
}

// buildServices wires repositories and services. metrics may be nil.
func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, metrics *telemetry.Metrics, logger zerolog.Logger) (*services, error) {
	caps := capability.NewRegistry(cfg.Capabilities...)
	if cfg.ProbeCapabilities {
		if err := capability.Probe(ctx, pool, caps); err != nil {
			return nil, fmt.Errorf("probe capabilities: %w", err)
		}
	}
	logger.Info().Strs("capabilities", caps.List()).Msg("capabilities resolved")

	errs := errorlog.New(errorlog.NewStorePG(pool), logger)
	tx := db.NewTransactor(pool)

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	labSvc := lab.NewService(
		lab.NewSampleRepoPG(pool),
		lab.NewTestResultRepoPG(pool),
		lab.NewLabTestRepoPG(pool),
		lab.NewMasterDataRepoPG(pool),
		tx,
	)
	if metrics != nil {
		errs.SetCounter(metrics)
		labSvc.SetMetrics(metrics)
	}
	apptSvc := appointment.NewService(
		appointment.NewCollectionRepoPG(pool),
		appointment.NewPatientAppointmentRepoPG(pool),
		appointment.NewSetupRepoPG(pool),
		patientSvc, caps, tx,
	)

	return &services{
		caps:         caps,
		errs:         errs,
		patients:     patientSvc,
		lab:          labSvc,
		appointments: apptSvc,
		dashboard:    dashboard.NewService(labSvc, patientSvc, caps),
	}, nil
}

type serverDeps struct {
	pinger    db.Pinger
	poolStats func() *db.PoolStats
	svc       *services
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
}

func newServer(cfg *config.Config, d serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Requested-With"},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(telemetry.TracingMiddleware())
	if d.metrics != nil {
		e.Use(d.metrics.Middleware())
	}

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", db.HealthHandler(d.pinger, version, d.poolStats))
	if d.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.metrics.Handler()))
	}

	// API groups
	methodGroup := e.Group("/api/method")
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	methodGroup.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	s := d.svc
	patient.NewHandler(s.patients, s.errs).RegisterRoutes(methodGroup, apiV1)
	lab.NewHandler(s.lab, s.errs).RegisterRoutes(methodGroup, apiV1)
	appointment.NewHandler(s.appointments, s.errs).RegisterRoutes(methodGroup, apiV1)
	dashboard.NewHandler(s.dashboard).RegisterRoutes(methodGroup, apiV1)
	errorlog.NewHandler(s.errs).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTELEndpoint, serviceName, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// Database
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: serviceName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	svc, err := buildServices(ctx, cfg, pool, metrics, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	e := newServer(cfg, serverDeps{
		pinger:    pool,
		poolStats: func() *db.PoolStats { return db.GetPoolStats(pool) },
		svc:       svc,
		metrics:   metrics,
		logger:    logger,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
