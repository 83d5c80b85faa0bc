package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/frontdesk/frontdesk/internal/config"
	"github.com/frontdesk/frontdesk/internal/domain/appointment"
	"github.com/frontdesk/frontdesk/internal/domain/checkin"
	"github.com/frontdesk/frontdesk/internal/domain/patient"
	"github.com/frontdesk/frontdesk/internal/domain/waitingqueue"
	"github.com/frontdesk/frontdesk/internal/platform/db"
	"github.com/frontdesk/frontdesk/internal/platform/middleware"
	"github.com/frontdesk/frontdesk/internal/platform/redisclient"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "frontdesk-server",
		Short: "Clinic front-desk API server",
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
		Short: "Start the front-desk API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("patients")
			clinicRaw, _ := cmd.Flags().GetString("clinic-id")

			clinicID := uuid.New()
			if clinicRaw != "" {
				id, err := uuid.Parse(clinicRaw)
				if err != nil {
					return fmt.Errorf("invalid --clinic-id: %w", err)
				}
				clinicID = id
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := seedDemoData(ctx, pool, clinicID, count); err != nil {
				return err
			}
			fmt.Printf("Seeded %d patients for clinic %s\n", count, clinicID)
			return nil
		},
	}
	cmd.Flags().Int("patients", 50, "Number of demo patients to create")
	cmd.Flags().String("clinic-id", "", "Clinic to seed into (random when empty)")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis, for queue snapshots and the waiting-room cache
	rdb, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()
	logger.Info().Msg("connected to redis")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "X-Staff-Role"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, rdb))

	apiV1 := e.Group("/api/v1")

	// -- Register Domain Handlers --

	// Patient domain
	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Appointment domain
	apptRepo := appointment.NewRepo(pool)
	apptSvc := appointment.NewService(apptRepo)
	apptHandler := appointment.NewHandler(apptSvc)
	apptHandler.RegisterRoutes(apiV1)

	// Waiting queue domain
	queueRepo := waitingqueue.NewRepo(rdb)
	queueSvc := waitingqueue.NewService(queueRepo)
	queueHandler := waitingqueue.NewHandler(queueSvc)
	queueHandler.RegisterRoutes(apiV1)

	// Check-in orchestrator
	checkinSvc := checkin.NewService(patientRepo, apptRepo, checkin.NewZerologAuditor(logger))
	checkinSvc.SetStatusCache(checkin.NewRedisStatusCache(rdb))
	checkinHandler := checkin.NewHandler(checkinSvc)
	checkinHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
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

// seedDemoData creates demo patients through the domain services so every
// row passes the same validation as production writes. Roughly a third of
// the patients also get an appointment later today.
func seedDemoData(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) error {
	gofakeit.Seed(time.Now().UnixNano())

	sc := scope.ForClinic(clinicID)
	patientSvc := patient.NewService(patient.NewRepo(pool))
	apptSvc := appointment.NewService(appointment.NewRepo(pool))

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		birth := gofakeit.DateRange(now.AddDate(-90, 0, 0), now.AddDate(-1, 0, 0))
		p := patient.Patient{
			MRN:       fmt.Sprintf("MRN-%06d", gofakeit.Number(100000, 999999)),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			BirthDate: birth,
			Minor:     birth.After(now.AddDate(-18, 0, 0)),
			Phone:     gofakeit.Phone(),
			Email:     gofakeit.Email(),
			EmergencyContact: patient.EmergencyContact{
				Name:         gofakeit.Name(),
				Phone:        gofakeit.Phone(),
				Relationship: ptr("family"),
				Verified:     gofakeit.Bool(),
			},
			ClinicID: &clinicID,
		}
		created, err := patientSvc.CreatePatient(ctx, sc, p)
		if err != nil {
			return fmt.Errorf("seed patient %d: %w", i, err)
		}

		if i%3 != 0 {
			continue
		}
		start := now.Add(time.Duration(gofakeit.Number(1, 6)) * time.Hour).Truncate(time.Minute)
		a := appointment.Appointment{
			Patient: appointment.PatientSnapshot{
				ID:        created.ID,
				Name:      created.FullName(),
				Phone:     created.Phone,
				Email:     created.Email,
				BirthDate: created.BirthDate,
			},
			Professional: appointment.ProfessionalSnapshot{
				ID:             uuid.New(),
				Name:           gofakeit.Name(),
				Specialization: "General Practice",
				Title:          "Dr.",
			},
			Slot: appointment.TimeSlot{
				Start:           start,
				End:             start.Add(30 * time.Minute),
				DurationMinutes: 30,
			},
			Type:     appointment.TypeConsultation,
			Urgency:  appointment.UrgencyMedium,
			ClinicID: &clinicID,
		}
		if _, _, err := apptSvc.Schedule(ctx, sc, a, "seed"); err != nil {
			return fmt.Errorf("seed appointment for patient %s: %w", created.ID, err)
		}
	}
	return nil
}

func ptr(s string) *string { return &s }
