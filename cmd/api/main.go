package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/ai"
	"github.com/xelth-com/protocolos/internal/blob"
	"github.com/xelth-com/protocolos/internal/config"
	"github.com/xelth-com/protocolos/internal/database"
	"github.com/xelth-com/protocolos/internal/handlers"
	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/logging"
	"github.com/xelth-com/protocolos/internal/media"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
	"github.com/xelth-com/protocolos/internal/sla"
	"github.com/xelth-com/protocolos/internal/store"
	"github.com/xelth-com/protocolos/internal/utils"
	"github.com/xelth-com/protocolos/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.NodeEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	// Note: db.Close() is called manually in shutdown below

	// 3. Auto-Migrate Schema
	logger.Info("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Protocol{},
		&models.Pdv{},
		&models.Product{},
		&models.ImportRun{},
	)
	if err != nil {
		logger.Warn("⚠️ Migration warning", zap.Error(err))
	} else {
		logger.Info("✅ Schema synchronized successfully")
	}

	protocols := store.NewProtocolStore(db.DB)
	users := store.NewUserStore(db.DB)
	pdvs := store.NewPdvStore(db.DB)
	products := store.NewProductStore(db.DB)
	runs := store.NewImportRunStore(db.DB)

	if err := bootstrapAdmin(ctx, users, cfg.Admin, logger); err != nil {
		logger.Warn("⚠️ Admin bootstrap failed", zap.Error(err))
	}

	// 4. Set up HTTP router
	router := handlers.NewRouter(cfg.JWTSecret, cfg.PublicURL, protocols, users, logger)
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		logger.Warn("⚠️ Unknown timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
	} else {
		router.SetLocation(loc)
	}

	// Photo storage
	blobs, err := blob.New(ctx, cfg.Storage, cfg.PublicURL)
	if err != nil {
		logger.Fatal("Failed to init photo storage", zap.Error(err))
	}
	uploader := media.NewUploader(blobs, media.Config{
		MaxAttempts:    cfg.Upload.MaxAttempts,
		BaseDelay:      cfg.Upload.BaseDelay,
		AttemptTimeout: cfg.Upload.AttemptTimeout,
	}, logger.Named("upload"))
	router.SetPhotos(uploader, blobs)
	logger.Info("✅ Photo storage ready", zap.String("driver", cfg.Storage.Driver))

	// Notifications
	sinks := notify.NewRegistry()
	if err := sinks.Register(notify.NewLogSink(logger.Named("notify"))); err != nil {
		logger.Warn("⚠️ Notify: failed to register log sink", zap.Error(err))
	}
	var amqpSink *notify.AMQPSink
	if cfg.Notify.AMQPURL != "" {
		amqpSink, err = notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			logger.Warn("⚠️ Notify: AMQP unavailable", zap.Error(err))
		} else if err := sinks.Register(amqpSink); err != nil {
			logger.Warn("⚠️ Notify: failed to register AMQP sink", zap.Error(err))
		} else {
			logger.Info("✅ Notify: AMQP sink registered", zap.String("exchange", cfg.Notify.Exchange))
		}
	}
	router.SetNotifier(sinks)

	// Realtime hub
	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)
	router.SetHub(hub)

	// Imports
	synonyms, err := importer.LoadSynonyms(cfg.Import.SynonymsPath)
	if err != nil {
		logger.Fatal("Failed to load header synonyms", zap.Error(err))
	}
	imp := importer.New(synonyms, cfg.Import.ChunkSize, logger.Named("import"))
	router.SetImporter(imp, pdvs, products, runs, cfg.Import.MaxFileBytes)

	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			logger.Warn("⚠️ AI: header advisor disabled", zap.Error(err))
		} else {
			defer gemini.Close()
			router.SetAdvisor(ai.NewHeaderAdvisor(gemini, logger.Named("ai")))
			logger.Info("✅ AI: header advisor enabled", zap.String("model", cfg.AI.Model))
		}
	}

	// SLA checker
	checker := sla.NewChecker(protocols, sinks, cfg.SLA.Threshold, logger.Named("sla"))
	slaDone := make(chan struct{})
	go func() {
		defer close(slaDone)
		checker.Run(ctx, cfg.SLA.Interval)
	}()
	logger.Info("✅ SLA checker started", zap.Duration("interval", cfg.SLA.Interval), zap.Duration("threshold", cfg.SLA.Threshold))

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.NodeEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("⚠️  Received shutdown signal. Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	<-slaDone

	if amqpSink != nil {
		if err := amqpSink.Close(); err != nil {
			logger.Warn("AMQP close error", zap.Error(err))
		}
	}

	// Close database (this also stops embedded PostgreSQL)
	logger.Info("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("✅ Shutdown complete")
}

// bootstrapAdmin creates the first admin account when the user table is empty.
func bootstrapAdmin(ctx context.Context, users *store.UserStore, cfg config.AdminConfig, logger *zap.Logger) error {
	count, err := users.Count(ctx)
	if err != nil || count > 0 {
		return err
	}
	if cfg.Password == "" {
		logger.Warn("⚠️ No users yet and ADMIN_PASSWORD is not set; nobody can log in")
		return nil
	}
	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := &models.UserAuth{
		Username: cfg.Username,
		Password: hash,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("👤 Admin account created", zap.String("username", cfg.Username))
	return nil
}
