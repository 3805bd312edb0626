package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/Payphone-Digital/socialhub/config"
	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/handler"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/Payphone-Digital/socialhub/internal/repository"
	"github.com/Payphone-Digital/socialhub/internal/router"
	"github.com/Payphone-Digital/socialhub/internal/service"
	"github.com/Payphone-Digital/socialhub/pkg/circuit"
	"github.com/Payphone-Digital/socialhub/pkg/database"
	"github.com/Payphone-Digital/socialhub/pkg/events"
	"github.com/Payphone-Digital/socialhub/pkg/health"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/Payphone-Digital/socialhub/pkg/mailer"
	"github.com/Payphone-Digital/socialhub/pkg/ratelimit"
	"github.com/Payphone-Digital/socialhub/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", constants.AppVersion),
	)

	if config.App.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDatabase(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully",
		zap.String("driver", config.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := health.NewMonitor(time.Minute, 5*time.Second, logger.GetLogger())
	monitor.Register("database", true, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})

	// Rate limiting falls back to per-process buckets without redis
	rules := map[string]ratelimit.Rule{
		constants.RateLimitBucketAPI:  {Max: config.RateLimit.Request, Window: config.RateLimit.Duration},
		constants.RateLimitBucketAuth: {Max: config.RateLimit.AuthRequest, Window: config.RateLimit.AuthDuration},
	}
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(rules)
	if config.Redis.Enabled {
		redisClient, err := redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Warn("Redis unavailable, using in-memory rate limiting", zap.Error(err))
		} else {
			defer redisClient.Close()
			limiter = ratelimit.NewRedisLimiter(redisClient.Raw(), constants.KeyPrefixRateLimit, rules)
			monitor.Register("redis", false, redisClient.Ping)
		}
	}

	mail, err := newMailer(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize mailer", zap.Error(err))
	}
	mailBreaker := circuit.NewBreaker("mail", circuit.DefaultConfig())
	monitor.Register("mail", false, func(context.Context) error {
		if mailBreaker.State() == circuit.StateOpen {
			return circuit.ErrCircuitOpen
		}
		return nil
	})

	var publisher events.Publisher = events.NopPublisher{}
	if config.Events.Enabled {
		conn, err := events.Connect(config.Events.URL, config.App.Name)
		if err != nil {
			logger.GetLogger().Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			natsPublisher := events.NewNATSPublisher(conn, config.Events.SubjectPrefix)
			defer natsPublisher.Close()
			publisher = natsPublisher
			monitor.Register("nats", false, func(context.Context) error {
				if !conn.IsConnected() {
					return fmt.Errorf("nats connection %s", conn.Status())
				}
				return nil
			})
		}
	}

	// Repositories
	store := repository.NewStore(db)

	// Services
	codec := service.NewCredentialCodec(service.Argon2Params{
		Memory:      config.Auth.Argon2MemoryKB,
		Iterations:  config.Auth.Argon2Iterations,
		Parallelism: config.Auth.Argon2Parallelism,
		SaltLength:  service.DefaultArgon2Params().SaltLength,
		KeyLength:   service.DefaultArgon2Params().KeyLength,
	}, config.Auth.BcryptCost)
	tokens := service.NewTokenIssuer(config.JWT.Secret, config.JWT.ExpiresIn, config.JWT.Issuer)
	authService := service.NewAuthService(store, codec, tokens, service.AuthConfig{
		ConfirmationWindow: config.Auth.ConfirmationWindow,
		RevokeOnReuse:      config.Auth.RevokeOnReuse,
	})
	userService := service.NewUserService(store.Users())
	notifier, err := service.NewNotifier(mail, mailBreaker, service.NotifierConfig{
		AppName:            config.Mail.FromName,
		From:               mailer.Address{Name: config.Mail.FromName, Email: config.Mail.FromAddress},
		APIBaseURL:         config.Links.APIBaseURL,
		FrontendBaseURL:    config.Links.FrontendBaseURL,
		ConfirmationWindow: config.Auth.ConfirmationWindow,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize notifier", zap.Error(err))
	}

	janitor := service.NewPendingJanitor(store.Pending(), config.Auth.PendingRetention, config.Auth.PendingSweepEvery, nil)
	go janitor.Run(ctx)
	go monitor.Run(ctx)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, userService, notifier, publisher, config.Links.FrontendBaseURL)
	userHandler := handler.NewUserHandler(userService)
	healthHandler := handler.NewHealthHandler(monitor)

	// Middleware
	validationMiddleware, err := middleware.NewValidationMiddleware()
	if err != nil {
		logger.GetLogger().Fatal("Failed to register validators", zap.Error(err))
	}
	jwtMiddleware := middleware.NewJWTMiddleware(tokens)

	r := router.NewRouter(
		userHandler,
		authHandler,
		healthHandler,

		validationMiddleware,
		jwtMiddleware,
		limiter,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	<-ctx.Done()
	logger.GetLogger().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Server shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.GetLogger().Info("Server stopped")
}

func openDatabase(config *configs.Config) (*gorm.DB, error) {
	if config.Database.Driver == "sqlite" {
		return database.NewSQLiteDB(config.Database.SQLitePath, config.App.Environment)
	}

	return database.NewPostgresDB(database.Config{
		Environment:     config.App.Environment,
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
}

func newMailer(config *configs.Config) (mailer.Mailer, error) {
	switch config.Mail.Provider {
	case "sendgrid":
		return mailer.NewSendGridMailer(config.Mail.SendGridAPIKey, ""), nil
	case "smtp":
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     config.Mail.SMTPHost,
			Port:     config.Mail.SMTPPort,
			Secure:   config.Mail.SMTPSecure,
			Username: config.Mail.SMTPUser,
			Password: config.Mail.SMTPPass,
		})
	default:
		return mailer.NewLogMailer(), nil
	}
}
