package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nexauth/identity/internal/config"
	httpserver "github.com/nexauth/identity/internal/http"
	"github.com/nexauth/identity/internal/notification"
	"github.com/nexauth/identity/pkg/auth"
	"github.com/nexauth/identity/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Repositories
	usersRepo := repository.NewUsersRepository(db)
	credsRepo := repository.NewCredentialsRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	tokensRepo := repository.NewVerificationTokensRepository(db)
	secretsRepo := repository.NewMFASecretsRepository(db)
	recoveryCodesRepo := repository.NewMFARecoveryCodesRepository(db)
	pendingRepo := repository.NewPendingMFASessionsRepository(db)
	tenantsRepo := repository.NewTenantsRepository(db)
	clientsRepo := repository.NewClientsRepository(db)

	// Outbound email; tokens go to the log when SMTP is not configured.
	var notifier auth.Notifier
	if cfg.HasSMTP() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			BaseURL:  cfg.EmailBaseURL,
		})
		logger.Info("email service enabled")
	} else {
		notifier = notification.NewLogNotifier(logger)
		logger.Warn("SMTP not configured, tokens will be logged")
	}

	// Services
	cipher, err := auth.NewSecretCipher(cfg.MFAEncryptionKey)
	if err != nil {
		logger.Error("invalid MFA encryption key", "error", err)
		os.Exit(1)
	}

	passwordService := auth.NewPasswordService(db, usersRepo, credsRepo)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		JWTSecret:       []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	}, sessionsRepo, usersRepo)

	activationService := auth.NewActivationService(cfg.ActivationTokenTTL, logger, usersRepo, tokensRepo, notifier)

	enrollmentStore := repository.NewEnrollmentStore(db, secretsRepo, recoveryCodesRepo, usersRepo)
	enrollmentService := auth.NewEnrollmentService(
		auth.EnrollmentConfig{Issuer: cfg.MFAIssuer},
		usersRepo,
		secretsRepo,
		recoveryCodesRepo,
		clientsRepo,
		enrollmentStore,
		passwordService,
		sessionService,
		cipher,
	)

	loginService := auth.NewLoginService(
		auth.LoginConfig{PendingSessionTTL: cfg.PendingSessionTTL},
		passwordService,
		usersRepo,
		tenantsRepo,
		clientsRepo,
		pendingRepo,
		enrollmentService,
		sessionService,
	)

	recoveryService := auth.NewRecoveryService(
		auth.RecoveryConfig{
			VerifyTokenTTL: cfg.RecoveryVerifyTTL,
			ResetTokenTTL:  cfg.RecoveryResetTTL,
		},
		logger,
		usersRepo,
		tokensRepo,
		enrollmentService,
		nil, // no supplementary identity checker by default
		notifier,
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:            logger,
		PasswordService:   passwordService,
		ActivationService: activationService,
		LoginService:      loginService,
		SessionService:    sessionService,
		EnrollmentService: enrollmentService,
		RecoveryService:   recoveryService,
		LoginRateLimit:    cfg.LoginRateLimit,
		MFARateLimit:      cfg.MFARateLimit,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
