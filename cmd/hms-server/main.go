package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/claims"
	"github.com/hms/hms/internal/domain/eligibility"
	"github.com/hms/hms/internal/domain/preauth"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/domain/tariff"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/clock"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
)

// CoverageAdapter adapts the eligibility service to the
// claims.CoverageReader interface, avoiding a circular import between
// the claims and eligibility packages.
type CoverageAdapter struct {
	svc *eligibility.Service
}

// NewCoverageAdapter creates a new adapter.
func NewCoverageAdapter(svc *eligibility.Service) *CoverageAdapter {
	return &CoverageAdapter{svc: svc}
}

// ActiveCoverage implements claims.CoverageReader.
func (a *CoverageAdapter) ActiveCoverage(ctx context.Context, patientID uuid.UUID, at time.Time) (*claims.Coverage, error) {
	enr, pkg, err := a.svc.CoverageFor(ctx, patientID, at)
	if err != nil {
		return nil, err
	}
	yearStart, yearEnd := enr.PolicyYear(at)
	return &claims.Coverage{
		EnrollmentID: enr.ID,
		PackageID:    pkg.ID,
		AnnualLimit:  pkg.AnnualLimit,
		DefaultCopay: pkg.Copay,
		YearStart:    yearStart,
		YearEnd:      yearEnd,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "HMO Coverage and Claims Adjudication Server",
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
		Short: "Start the adjudication API server",
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

	// migrate up
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

	// migrate status
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

// seedCatalog is a starter set of NHIS service codes covering the
// categories the adjudicator recognizes. Base tariffs are in naira.
var seedCatalog = []struct {
	code     string
	desc     string
	category registry.ServiceCategory
	base     string
	preauth  bool
}{
	{"NHIS-0001", "General practitioner consultation", registry.CategoryConsultation, "2500.00", false},
	{"NHIS-0002", "Specialist consultation", registry.CategoryConsultation, "5000.00", false},
	{"NHIS-0101", "Full blood count", registry.CategoryLaboratory, "1500.00", false},
	{"NHIS-0102", "Malaria parasite test", registry.CategoryLaboratory, "800.00", false},
	{"NHIS-0103", "Urinalysis", registry.CategoryLaboratory, "700.00", false},
	{"NHIS-0201", "Chest X-ray", registry.CategoryRadiology, "4000.00", false},
	{"NHIS-0202", "Abdominal ultrasound", registry.CategoryRadiology, "5500.00", false},
	{"NHIS-0203", "CT scan", registry.CategoryRadiology, "45000.00", true},
	{"NHIS-0301", "Artemisinin combination therapy", registry.CategoryPharmacy, "1200.00", false},
	{"NHIS-0302", "Antihypertensive monthly refill", registry.CategoryPharmacy, "3500.00", false},
	{"NHIS-0401", "Appendectomy", registry.CategoryProcedure, "150000.00", true},
	{"NHIS-0402", "Herniorrhaphy", registry.CategoryProcedure, "120000.00", true},
	{"NHIS-0501", "Ward admission (per day)", registry.CategoryInpatient, "10000.00", false},
	{"NHIS-0502", "ICU admission (per day)", registry.CategoryInpatient, "50000.00", true},
	{"NHIS-0601", "Normal delivery", registry.CategoryMaternity, "60000.00", false},
	{"NHIS-0602", "Caesarean section", registry.CategoryMaternity, "180000.00", true},
	{"NHIS-0603", "Antenatal care (per visit)", registry.CategoryMaternity, "2000.00", false},
	{"NHIS-0701", "Emergency room stabilization", registry.CategoryEmergency, "15000.00", false},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the NHIS service code catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			codeRepo := registry.NewServiceCodeRepoPG(pool)
			existing, _, err := codeRepo.List(ctx, "", 1, 0)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Println("Service code catalog already seeded; nothing to do.")
				return nil
			}

			for _, entry := range seedCatalog {
				base, err := decimal.NewFromString(entry.base)
				if err != nil {
					return fmt.Errorf("parse base tariff for %s: %w", entry.code, err)
				}
				sc := &registry.ServiceCode{
					Code:            entry.code,
					Description:     entry.desc,
					Category:        entry.category,
					BaseTariff:      base,
					PreauthRequired: entry.preauth,
				}
				if err := codeRepo.Create(ctx, sc); err != nil {
					return fmt.Errorf("seed %s: %w", entry.code, err)
				}
			}

			fmt.Printf("Seeded %d service codes.\n", len(seedCatalog))
			return nil
		},
	}
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
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.DevSigningKey),
		}))
	}

	// API group with rate limiting
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	clk := clock.System()

	// Registry domain
	providerRepo := registry.NewProviderRepoPG(pool)
	packageRepo := registry.NewPackageRepoPG(pool)
	codeRepo := registry.NewServiceCodeRepoPG(pool)
	registrySvc := registry.NewService(providerRepo, packageRepo, codeRepo, providerRepo.(registry.ReferenceChecker), logger)
	registryHandler := registry.NewHandler(registrySvc)
	registryHandler.RegisterRoutes(apiV1)

	// Tariff domain
	tariffRepo := tariff.NewRepoPG(pool)
	tariffSvc := tariff.NewService(tariffRepo, codeRepo)
	tariffHandler := tariff.NewHandler(tariffSvc)
	tariffHandler.RegisterRoutes(apiV1)

	// Claims repository is created before the eligibility service so
	// consumed-amount reporting can be wired into eligibility checks.
	claimRepo := claims.NewRepoPG(pool)
	commitStatuses := claims.CommitStatuses(cfg.LimitCommitStage)

	// Eligibility domain
	enrollRepo := eligibility.NewEnrollmentRepoPG(pool)
	eligSvc := eligibility.NewService(enrollRepo, packageRepo, claimRepo, commitStatuses, clk)
	eligHandler := eligibility.NewHandler(eligSvc)
	eligHandler.RegisterRoutes(apiV1)

	// Pre-authorization domain
	preauthRepo := preauth.NewRepoPG(pool)
	preauthSvc := preauth.NewService(preauthRepo, clk, logger)
	preauthHandler := preauth.NewHandler(preauthSvc)
	preauthHandler.RegisterRoutes(apiV1)

	// Claims domain
	coverage := NewCoverageAdapter(eligSvc)
	submitter := claims.NewLogSubmitter(logger)
	claimSvc := claims.NewService(claimRepo, coverage, tariffSvc, codeRepo, submitter, clk, logger, cfg.TariffBaseFallback)
	claimHandler := claims.NewHandler(claimSvc)
	claimHandler.RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if cfg.TLSEnabled {
			if err := e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("server error")
			}
			return
		}
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
