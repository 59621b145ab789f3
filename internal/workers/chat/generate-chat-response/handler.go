package generatechatresponse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retail-chat-workers/internal/chat"
	"retail-chat-workers/internal/common/camunda"
	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/metrics"
	"retail-chat-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-chat-response"

type executor interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      executor
	activity     *registry.Activity
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Chat         ChatResponder
	Registry     *registry.ActivityRegistry
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Chat == nil {
		return nil, fmt.Errorf("invalid configuration for %s: chat service is required", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	handler := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		service: NewService(ServiceDependencies{
			Chat:   opts.Chat,
			Logger: loggerInstance,
		}),
	}
	if opts.Registry != nil {
		if activity, ok := opts.Registry.Find(TaskType); ok {
			handler.activity = activity
		}
	}

	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), camunda.ExecutionBudget(h.config.Timeout))
	defer cancel()

	h.logger.Info("Processing chat response request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.failJob(client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		if h.config.CompleteWithFallback && job.GetRetries() <= 1 {
			h.logger.Warn("Retries exhausted, completing with fallback reply", map[string]interface{}{
				"jobKey": job.GetKey(),
				"error":  err.Error(),
			})
			h.completeJob(client, job, &Output{Response: chat.FallbackErrorResponse(), Fallback: true})
			return
		}
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute runs one chat turn outside of Zeebe.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewChatInputInvalidError("failed to parse job variables: " + err.Error())
	}

	if h.activity != nil {
		result, err := h.activity.ValidateInput(variables)
		if err != nil {
			return nil, errors.NewChatInputInvalidError(err.Error())
		}
		if !result.Valid {
			return nil, errors.NewChatInputInvalidError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
		return nil, errors.NewChatInputInvalidError("failed to decode job variables: " + err.Error())
	}
	input.UserMessage = strings.TrimSpace(input.UserMessage)
	if input.UserMessage == "" {
		return nil, errors.NewChatInputInvalidError("userMessage is required")
	}
	return &input, nil
}

// failJob and completeJob send on a command context of their own; the work
// context may already be spent by the time the outcome is known.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	ctx, cancel := camunda.CommandContext()
	defer cancel()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	ctx, cancel := camunda.CommandContext()
	defer cancel()

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Chat response job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"type":     output.Response.Type,
		"fallback": output.Fallback,
	})
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.As(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[TaskType]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}
	return cfg
}
