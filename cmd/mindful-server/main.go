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
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mindful/mindful/internal/config"
	"github.com/mindful/mindful/internal/domain/assessment"
	"github.com/mindful/mindful/internal/domain/auditlog"
	"github.com/mindful/mindful/internal/domain/inbox"
	"github.com/mindful/mindful/internal/domain/patient"
	"github.com/mindful/mindful/internal/domain/resource"
	"github.com/mindful/mindful/internal/domain/screening"
	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/db"
	"github.com/mindful/mindful/internal/platform/docstore"
	"github.com/mindful/mindful/internal/platform/identity"
	"github.com/mindful/mindful/internal/platform/middleware"
	"github.com/mindful/mindful/internal/platform/notification"
	"github.com/mindful/mindful/internal/platform/validation"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mindful-server",
		Short: "PHQ-9 / GAD-7 screening API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres only)",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			pool, err := migrationPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
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
			ctx := context.Background()
			pool, err := migrationPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
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

func migrationPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver != "postgres" {
		return nil, fmt.Errorf("migrations apply to STORE_DRIVER \"postgres\"; mongo indexes are created on startup")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair denormalized patient scores from their latest assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := context.Background()
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			report, err := assessment.NewReconciler(st.assessments, st.users, logger).Run(ctx)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			fmt.Printf("Checked %d patient(s), repaired %d.\n", report.Checked, report.Repaired)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed HS256 token for standalone mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			email, _ := cmd.Flags().GetString("email")
			roleName, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key, err := cfg.SigningKey()
			if err != nil {
				return err
			}
			if len(key) == 0 {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to mint tokens")
			}
			role, err := auth.ParseRole(roleName)
			if err != nil {
				return err
			}
			token, err := auth.MintToken(key, auth.TokenRequest{
				Subject:  userID,
				Email:    email,
				Role:     role,
				Issuer:   cfg.AuthIssuer,
				Audience: cfg.AuthAudience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "Subject (user id)")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("role", "patient", "Role claim")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

// stores holds the repositories for the configured driver.
type stores struct {
	users         user.Repository
	identities    identity.Repository
	assessments   assessment.Repository
	audit         auditlog.Repository
	notifications inbox.NotificationRepository
	resources     resource.Repository
	runner        db.Runner
	health        echo.HandlerFunc
	close         func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case "mongo":
		mdb, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := docstore.EnsureIndexes(ctx, mdb); err != nil {
			_ = mdb.Client().Disconnect(context.Background())
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")
		return mongoStores(mdb), nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		return pgStores(pool), nil
	}
}

func pgStores(pool *pgxpool.Pool) *stores {
	return &stores{
		users:         user.NewRepoPG(pool),
		identities:    identity.NewRepoPG(pool),
		assessments:   assessment.NewRepoPG(pool),
		audit:         auditlog.NewRepoPG(pool),
		notifications: inbox.NewNotificationRepoPG(pool),
		resources:     resource.NewRepoPG(pool),
		runner:        db.NewTransactor(pool),
		health:        db.HealthHandler(pool),
		close:         pool.Close,
	}
}

func mongoStores(mdb *mongo.Database) *stores {
	return &stores{
		users:         user.NewRepoMongo(mdb),
		identities:    identity.NewRepoMongo(mdb),
		assessments:   assessment.NewRepoMongo(mdb),
		audit:         auditlog.NewRepoMongo(mdb),
		notifications: inbox.NewNotificationRepoMongo(mdb),
		resources:     resource.NewRepoMongo(mdb),
		runner:        db.NoTx{},
		health:        docstore.HealthHandler(mdb),
		close: func() {
			_ = mdb.Client().Disconnect(context.Background())
		},
	}
}

func newMailSender(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (notification.EmailSender, error) {
	switch cfg.MailTransport {
	case "smtp":
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.FromEmail,
		})
	case "sqs":
		return notification.NewSQSSender(ctx, cfg.MailQueueURL, cfg.AWSRegion, cfg.FromEmail)
	default:
		return notification.LogSender{Logger: logger}, nil
	}
}

func authMiddleware(cfg *config.Config) (echo.MiddlewareFunc, error) {
	switch cfg.ResolvedAuthMode() {
	case "development":
		return auth.DevAuthMiddleware(), nil
	case "standalone":
		key, err := cfg.SigningKey()
		if err != nil {
			return nil, err
		}
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: key,
			Skipper:    auth.Skipper,
		}), nil
	default:
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.Skipper,
		}), nil
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.close()

	sender, err := newMailSender(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mail transport")
	}
	authMW, err := authMiddleware(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure authentication")
	}
	policy, err := screening.ParseMissingAnswerPolicy(cfg.MissingAnswerPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid missing answer policy")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevUserHeader, auth.DevRoleHeader},
	}))
	e.Use(authMW)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	// Services
	identitySvc := identity.NewService(st.identities)
	recorder := auditlog.NewRecorder(st.audit, identitySvc)
	recorder.SetLogger(logger)
	inboxSvc := inbox.NewService(st.notifications)
	mailer := notification.NewMailer(sender, cfg.AppURL, logger)

	assessmentSvc := assessment.NewService(st.assessments, st.users, inboxSvc, recorder, mailer)
	assessmentSvc.SetLogger(logger)
	assessmentSvc.SetPolicy(policy)
	if cfg.SubmissionTransaction {
		assessmentSvc.SetRunner(st.runner)
	}

	patientSvc := patient.NewService(st.users, identitySvc, assessmentSvc, recorder, mailer)
	patientSvc.SetLogger(logger)
	patientSvc.SetSuperAdminEmails(cfg.SuperAdminEmails)

	// Routes
	assessment.NewHandler(assessmentSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	inbox.NewHandler(inboxSvc).RegisterRoutes(apiV1)
	auditlog.NewHandler(auditlog.NewService(st.audit, st.users)).RegisterRoutes(apiV1)
	resource.NewHandler(resource.NewService(st.resources, st.users)).RegisterRoutes(apiV1)
	if cfg.ResolvedAuthMode() == "standalone" {
		key, _ := cfg.SigningKey()
		identity.NewHandler(identitySvc, identity.TokenConfig{
			SigningKey: key,
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
		}).RegisterRoutes(apiV1)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", st.health)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Str("auth", cfg.ResolvedAuthMode()).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
