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

	"raiserocket/internal/api"
	"raiserocket/internal/config"
	"raiserocket/internal/intake"
	"raiserocket/internal/logger"
	"raiserocket/internal/mission"
	"raiserocket/internal/redis"
	"raiserocket/internal/report"
	"raiserocket/internal/scan"
	"raiserocket/internal/storage"
	"raiserocket/internal/visitor"
	"raiserocket/internal/waitlist"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load(os.Getenv("RAISEROCKET_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	appLog := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer appLog.Sync()

	dbType := cfg.BasicConfig.Database
	appLog.Info("opening database", map[string]interface{}{"driver": dbType})
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: intake_slots, waitlist_entries
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var kv intake.KV
	switch cfg.BasicConfig.IntakeBackend {
	case config.IntakeBackendRedis:
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		kv = intake.NewRedisKV(rdb, cfg.IntakeTTL())
	case config.IntakeBackendMemory:
		kv = intake.NewMemoryKV()
	default:
		kv = intake.NewSQLKV(db, dbType)
	}
	store := intake.NewStore(kv, appLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier waitlist.Notifier = waitlist.NopNotifier{}
	if cfg.Mail.Enabled {
		ses, err := waitlist.NewSESNotifier(ctx, cfg.Mail.Region, cfg.Mail.Sender)
		if err != nil {
			log.Fatalf("init ses notifier: %v", err)
		}
		notifier = ses
	}
	waitlistService := waitlist.NewService(db, notifier, appLog)

	seq := scan.NewSequencer(cfg.ScanInterval(), cfg.ScanFinalDelay())
	var opts []mission.Option
	if len(cfg.Scan.Stages) > 0 {
		opts = append(opts, mission.WithStages(cfg.Scan.Stages))
	}
	missions := mission.NewManager(seq, report.Mock{}, appLog, opts...)
	defer missions.Shutdown()
	missions.StartJanitor(ctx, cfg.JanitorInterval(), cfg.StateTTL())

	identity := visitor.NewIdentity(config.DefaultVisitorCookieTTL, cfg.BasicConfig.SecureCookies)
	handlers := api.NewHandler(store, missions, waitlistService, identity, appLog, cfg.BasicConfig.AllowTierPreview)

	router := gin.New()
	router.Use(logger.GinMiddleware(appLog), gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Info("listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("graceful shutdown failed", nil)
	}
}
