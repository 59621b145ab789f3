package capturelead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retail-chat-workers/internal/common/camunda"
	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/metrics"
	"retail-chat-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "capture-lead"

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *Service
	activity     *registry.Activity
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Leads        LeadStore
	Email        EmailSender
	SMS          SMSSender
	Registry     *registry.ActivityRegistry
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Leads == nil {
		return nil, fmt.Errorf("invalid configuration for %s: lead store is required", TaskType)
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
			Leads:  opts.Leads,
			Email:  opts.Email,
			SMS:    opts.SMS,
			Logger: loggerInstance,
		}, workerConfig),
	}
	if opts.Registry != nil {
		handler.activity, _ = opts.Registry.Find(TaskType)
	}
	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), camunda.ExecutionBudget(h.config.Timeout))
	defer cancel()

	h.logger.Info("Processing lead capture request", map[string]interface{}{
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
		h.failJob(client, job, err)
		return
	}

	cmdCtx, cmdCancel := camunda.CommandContext()
	defer cmdCancel()
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}
	if _, err := request.Send(cmdCtx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}

	h.logger.Info("Lead capture completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"leadId":   output.LeadID,
		"priority": output.Priority,
	})
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	ctx, cancel := camunda.CommandContext()
	defer cancel()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewLeadValidationError("failed to parse job variables: " + err.Error())
	}

	if h.activity != nil {
		result, err := h.activity.ValidateInput(variables)
		if err != nil {
			return nil, errors.NewLeadValidationError(err.Error())
		}
		if !result.Valid {
			return nil, errors.NewLeadValidationError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
		return nil, errors.NewLeadValidationError("failed to decode job variables: " + err.Error())
	}
	return &input, nil
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
	if appConfig == nil {
		return cfg
	}

	if workerCfg, exists := appConfig.Workers[TaskType]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}

	zoho := appConfig.Integrations.Zoho
	if zoho.LeadSource != "" {
		cfg.LeadSource = zoho.LeadSource
	}
	aws := appConfig.Integrations.AWS
	if aws.SES.Enabled {
		cfg.SalesRecipients = append([]string(nil), aws.SES.SalesRecipients...)
	}
	if aws.SNS.Enabled {
		cfg.SalesPhones = append([]string(nil), aws.SNS.SalesPhones...)
	}
	return cfg
}
