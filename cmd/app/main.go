package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"exam-access-backend/internal/config"
	"exam-access-backend/internal/infra/adapters/notify"
	pg "exam-access-backend/internal/infra/db/postgres"
	"exam-access-backend/internal/infra/logging"
	"exam-access-backend/internal/infra/metrics"
	red "exam-access-backend/internal/infra/redis"
	"exam-access-backend/internal/infra/sched"
	"exam-access-backend/internal/infra/web"
	"exam-access-backend/internal/infra/worker"
	"exam-access-backend/internal/retry"
	"exam-access-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	codeRepo := pg.NewAccessCodeRepo(pool)
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewPostgresUserRepo(pool), redisClient, cfg.Redis.TTL)

	// ---- Use cases ----
	policy := retry.Policy{
		MaxRetries:    cfg.Codes.Retry.MaxRetries,
		Delay:         cfg.Codes.Retry.Delay,
		IsLockTimeout: pg.IsLockTimeout,
		IsDuplicate:   pg.IsDuplicateKey,
	}
	codeUC := usecase.NewAccessCodeUseCase(codeRepo, userRepo, policy, cfg.Codes.OpTimeout, logger).
		WithTxManager(pg.NewTxManager(pool))
	queryUC := usecase.NewQueryUseCase(codeRepo, logger)

	notifier := notify.NewLogNotifier(logger, cfg.Runtime.Dev)
	reminderUC := usecase.NewReminderUseCase(codeRepo, notifier, logger)

	// ---- Background workers ----
	pool2 := worker.NewPool(cfg.Reminder.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	go func() { _ = sched.NewExpirySweeper(cfg.Sweep.Interval, codeRepo, logger).Run(ctx) }()
	go func() {
		_ = sched.NewReminderWorker(cfg.Reminder.Interval, cfg.Reminder.WithinDays, reminderUC, pool2, logger).Run(ctx)
	}()

	// ---- Metrics / admin endpoint ----
	metrics.MustRegister()
	go reportPoolStats(ctx, pool)

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	adminSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: adminMux}
	go func() {
		logger.Info().Str("addr", adminSrv.Addr).Msg("admin endpoint listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- API server ----
	auth := web.NewAuthManager(cfg.Auth.HMACSecret, !cfg.Runtime.Dev, "", cfg.Auth.TTL)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: web.NewServer(codeUC, queryUC, auth, rateLimiter, cfg.Codes.Limits, logger).Router(),
	}
	go func() {
		logger.Info().Str("addr", apiSrv.Addr).Msg("api listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
