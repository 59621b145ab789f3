// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retail-chat-workers/internal/chat"
	"retail-chat-workers/internal/common/aws"
	"retail-chat-workers/internal/common/camunda"
	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/database"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/observability"
	"retail-chat-workers/internal/common/zoho"
	"retail-chat-workers/internal/hybrid"
	"retail-chat-workers/internal/hybrid/providers"
	"retail-chat-workers/pkg/registry"

	cph "retail-chat-workers/internal/workers/chat/check-provider-health"
	gcr "retail-chat-workers/internal/workers/chat/generate-chat-response"
	cl "retail-chat-workers/internal/workers/crm/capture-lead"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	log.Info("Starting worker manager...", nil)
	for _, warning := range cfg.Warnings {
		log.Warn("configuration warning", map[string]interface{}{"warning": warning})
	}

	obs, err := observability.New("worker-manager")
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	// --- PostgreSQL (chat usage records) ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis (provider status caches) ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error { return rdb.Ping(ctx) }, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("Redis connected successfully", nil)

	// --- Hybrid orchestration ---
	statusCache := hybrid.NewStatusCache(rdb.Client)
	orchestrator, err := hybrid.NewOrchestrator(
		hybrid.ConfigFromAI(cfg.AI),
		providers.Build(cfg.AI, log),
		log,
		hybrid.WithAvailabilityCache(statusCache, config.GetDuration(cfg.AI.AvailabilityCacheTTL)),
		hybrid.WithHealthCache(statusCache, config.GetDuration(cfg.Server.HealthCacheTTL)),
	)
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}
	log.Info("provider order resolved", map[string]interface{}{"order": orchestrator.EffectiveOrder()})

	chatService, err := chat.NewService(chat.ServiceOptions{
		Generator:     orchestrator,
		Recorder:      chat.NewPostgresUsageRecorder(pg.DB),
		Config:        cfg.Chat,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("chat service init failed", zap.Error(err))
	}

	// --- Activity registry ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}

	// --- CRM and notifications ---
	crm := zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken)

	var (
		email cl.EmailSender
		sms   cl.SMSSender
	)
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Integrations.AWS.SES.Enabled {
			email = aws.NewSESClient(awsCfg, cfg.Integrations.AWS.SES.FromEmail)
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			sms = aws.NewSNSClient(awsCfg, cfg.Integrations.AWS.SNS.SenderID)
		}
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker

	generateHandler, err := gcr.NewHandler(gcr.HandlerOptions{
		AppConfig: cfg,
		Chat:      chatService,
		Registry:  reg,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create generate-chat-response handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zeebe.GetClient(), gcr.TaskType,
		workerConfig(cfg, reg, gcr.TaskType), generateHandler, log, obs))

	healthHandler, err := cph.NewHandler(cph.HandlerOptions{
		AppConfig: cfg,
		Reporter:  orchestrator,
		Registry:  reg,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create check-provider-health handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zeebe.GetClient(), cph.TaskType,
		workerConfig(cfg, reg, cph.TaskType), healthHandler, log, obs))

	leadHandler, err := cl.NewHandler(cl.HandlerOptions{
		AppConfig: cfg,
		Leads:     crm,
		Email:     email,
		SMS:       sms,
		Registry:  reg,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create capture-lead handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zeebe.GetClient(), cl.TaskType,
		workerConfig(cfg, reg, cl.TaskType), leadHandler, log, obs))

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newServeMux(orchestrator, zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

// workerConfig returns the configured worker block, or a default one whose
// timeout comes from the activity registry.
func workerConfig(cfg *config.Config, reg *registry.ActivityRegistry, taskType string) config.WorkerConfig {
	if wcfg, ok := cfg.Workers[taskType]; ok {
		return wcfg
	}
	wcfg := config.GetWorkerConfig(cfg, taskType)
	if activity, ok := reg.Find(taskType); ok {
		wcfg.Timeout = int(activity.TimeoutDuration(config.GetDuration(wcfg.Timeout)).Milliseconds())
	}
	return wcfg
}

type healthSource interface {
	CachedHealthStatus(ctx context.Context) *hybrid.HealthStatus
}

type readinessCheck interface {
	HealthCheck(ctx context.Context) error
}

func newServeMux(health healthSource, ready readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := health.CachedHealthStatus(r.Context())
		code := http.StatusOK
		if status.Status == hybrid.HealthUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
