package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogapi/auth"
	"blogapi/cache"
	"blogapi/config"
	"blogapi/database"
	"blogapi/logger"
	"blogapi/mail"
	"blogapi/metrics"
	"blogapi/routes"
	"blogapi/services"
	"blogapi/uploads"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("Server exited with error", "error", err)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	log.Infow("Starting blog API", "env", cfg.Env, "port", cfg.Port)

	var cleanup closers
	defer cleanup.close()

	// ===== MONGODB =====
	var store *database.Store
	var dbErr error
	for i := 1; i <= 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, dbErr = database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, log)
		cancel()
		if dbErr == nil {
			break
		}
		log.Warnw("MongoDB connection attempt failed", "attempt", i, "error", dbErr)
		time.Sleep(2 * time.Second)
	}
	if dbErr != nil {
		return dbErr
	}
	cleanup.add(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warnw("Failed to close MongoDB client", "error", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureIndexes(ctx); err != nil {
		cancel()
		return err
	}
	cancel()

	// ===== METRICS & CACHE =====
	m, metricsHandler, err := metrics.Setup("blog-api")
	if err != nil {
		return err
	}
	c := cache.New(cfg.Redis.Addr, cfg.Redis.TTL, log, m)
	if closer, ok := c.(io.Closer); ok {
		cleanup.add(func() {
			if err := closer.Close(); err != nil {
				log.Warnw("Failed to close cache", "error", err)
			}
		})
	}

	// ===== MAIL =====
	links := mail.Links{BaseURL: cfg.Mail.BaseURL}
	var mailer services.Mailer
	if cfg.MailEnabled() {
		mailer = mail.NewSMTP(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From, links)
	} else {
		log.Warnw("SMTP not configured; emails will be logged instead of sent")
		mailer = mail.NewLog(log, links)
	}

	// ===== UPLOADS =====
	var uploader uploads.Uploader
	var uploadDir string
	switch cfg.Uploads.Driver {
	case "cloudinary":
		cld, err := uploads.NewCloudinary(cfg.Uploads.CloudinaryURL)
		if err != nil {
			return err
		}
		uploader = cld
	default:
		local, err := uploads.NewLocal(cfg.Uploads.Dir)
		if err != nil {
			return err
		}
		uploader = local
		uploadDir = local.Root()
	}

	// ===== SERVICES =====
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	postService := services.NewPostService(store.Posts, store.Users, c, m, log)
	authService := services.NewAuthService(store.Users, mailer, tokens, log)
	profileService := services.NewProfileService(store.Users, uploader, c, cfg.Uploads.MaxBytes, log)

	// ===== ROUTER =====
	if cfg.GinMode == gin.ReleaseMode || cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(routes.Deps{
		Posts:          postService,
		Accounts:       authService,
		Profiles:       profileService,
		Tokens:         tokens,
		Logger:         log,
		Metrics:        m,
		MetricsHandler: metricsHandler,
		CORSOrigins:    cfg.Security.CORSOrigins,
		RateLimitRPM:   cfg.Security.RateLimitRPM,
		UploadDir:      uploadDir,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Infow("Shutting down server", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Forced shutdown", "error", err)
	}
	log.Infow("Server stopped gracefully")
	return nil
}

// closers holds shutdown steps for resources opened by run. They run in
// reverse order on every return path.
type closers []func()

func (c *closers) add(f func()) {
	*c = append(*c, f)
}

func (c *closers) close() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
	*c = nil
}
