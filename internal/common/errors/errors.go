// Package errors provides the error taxonomy shared by LLM providers, the chat
// orchestrator and the Zeebe job workers, plus conversion to BPMN errors.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Provider errors
const (
	ErrCodeProviderConfigInvalid = ErrorCode("PROVIDER_CONFIGURATION_INVALID")
	ErrCodeProviderTimeout       = ErrorCode("PROVIDER_TIMEOUT")
	ErrCodeProviderQuotaExceeded = ErrorCode("PROVIDER_QUOTA_EXCEEDED")
	ErrCodeProviderAuthFailed    = ErrorCode("PROVIDER_AUTH_FAILED")
	ErrCodeProviderRequestFailed = ErrorCode("PROVIDER_REQUEST_FAILED")
	ErrCodeProviderEmptyResponse = ErrorCode("PROVIDER_EMPTY_RESPONSE")
	ErrCodeNoProviderSucceeded   = ErrorCode("NO_PROVIDER_SUCCEEDED")
	ErrCodeRuleEngineFailed      = ErrorCode("RULE_ENGINE_FAILED")
)

// Chat, CRM and infrastructure errors
const (
	ErrCodeChatInputInvalid       = ErrorCode("CHAT_INPUT_INVALID")
	ErrCodeChatGenerationFailed   = ErrorCode("CHAT_GENERATION_FAILED")
	ErrCodeLeadValidationFailed   = ErrorCode("LEAD_VALIDATION_FAILED")
	ErrCodeLeadCaptureFailed      = ErrorCode("LEAD_CAPTURE_FAILED")
	ErrCodeNotificationSendFailed = ErrorCode("NOTIFICATION_SEND_FAILED")
	ErrCodeDatabaseInsertFailed   = ErrorCode("DATABASE_INSERT_FAILED")

	ErrCodeExternalService  = ErrorCode("EXTERNAL_SERVICE_ERROR")
	ErrCodeTimeout          = ErrorCode("TIMEOUT_ERROR")
	ErrCodeResourceNotFound = ErrorCode("RESOURCE_NOT_FOUND")
	ErrCodeBusinessRule     = ErrorCode("BUSINESS_RULE_VIOLATION")
	ErrCodeAuthentication   = ErrorCode("AUTHENTICATION_ERROR")
	ErrCodeInternal         = ErrorCode("INTERNAL_ERROR")
)

// Kind is the coarse failure class the orchestrator reasons about.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTimeout       Kind = "timeout"
	KindQuota         Kind = "quota"
	KindAuth          Kind = "auth"
	KindUnknown       Kind = "unknown"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Provider  string                 `json:"provider,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("StandardError[%s/%s]: %s", e.Code, e.Provider, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Kind maps the error code onto the provider failure taxonomy.
func (e *StandardError) Kind() Kind {
	switch e.Code {
	case ErrCodeProviderConfigInvalid:
		return KindConfiguration
	case ErrCodeProviderTimeout, ErrCodeTimeout:
		return KindTimeout
	case ErrCodeProviderQuotaExceeded:
		return KindQuota
	case ErrCodeProviderAuthFailed, ErrCodeAuthentication:
		return KindAuth
	default:
		return KindUnknown
	}
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Provider Constructors
// ==========================

func NewProviderConfigError(provider, details string) *StandardError {
	err := newError(ErrCodeProviderConfigInvalid, "Provider configuration is invalid", details, false)
	err.Provider = provider
	return err
}

// NewProviderTimeoutError tags a timed-out provider call with the budget it exceeded.
func NewProviderTimeoutError(provider string, timeout time.Duration) *StandardError {
	err := newError(ErrCodeProviderTimeout,
		fmt.Sprintf("Provider '%s' timed out", provider),
		fmt.Sprintf("call exceeded %d ms", timeout.Milliseconds()),
		true)
	err.Provider = provider
	err.Metadata = map[string]interface{}{"timeoutMs": timeout.Milliseconds()}
	err.cause = context.DeadlineExceeded
	return err
}

// NewProviderQuotaError is non-retryable for the provider that raised it.
func NewProviderQuotaError(provider, details string) *StandardError {
	err := newError(ErrCodeProviderQuotaExceeded, "Provider quota exhausted", details, false)
	err.Provider = provider
	return err
}

func NewProviderAuthError(provider, details string) *StandardError {
	err := newError(ErrCodeProviderAuthFailed, "Provider rejected credentials", details, false)
	err.Provider = provider
	return err
}

func NewProviderRequestError(provider string, cause error) *StandardError {
	err := newError(ErrCodeProviderRequestFailed, "Provider request failed", cause.Error(), true)
	err.Provider = provider
	err.cause = cause
	return err
}

func NewProviderEmptyResponseError(provider string) *StandardError {
	err := newError(ErrCodeProviderEmptyResponse, "Provider returned no text", "", true)
	err.Provider = provider
	return err
}

// NewNoProviderSucceededError is returned when every provider in the order was skipped or rejected.
func NewNoProviderSucceededError(lastErr error) *StandardError {
	details := "all providers were unavailable or below the confidence threshold"
	if lastErr != nil {
		details = lastErr.Error()
	}
	err := newError(ErrCodeNoProviderSucceeded, "No provider produced an acceptable response", details, false)
	err.cause = lastErr
	return err
}

func NewRuleEngineError(details string) *StandardError {
	return newError(ErrCodeRuleEngineFailed, "Rule-based responder failed", details, false)
}

// FromHTTPStatus classifies a non-2xx vendor response.
func FromHTTPStatus(provider string, status int, body string) *StandardError {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderAuthError(provider, fmt.Sprintf("status %d: %s", status, body))
	case status == http.StatusTooManyRequests,
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource_exhausted"):
		return NewProviderQuotaError(provider, fmt.Sprintf("status %d: %s", status, body))
	default:
		err := NewProviderRequestError(provider, fmt.Errorf("status %d: %s", status, body))
		err.Metadata = map[string]interface{}{"statusCode": status}
		return err
	}
}

// ==========================
// 4. Chat / CRM Constructors
// ==========================

func NewChatInputInvalidError(details string) *StandardError {
	return newError(ErrCodeChatInputInvalid, "Chat input is invalid", details, false)
}

func NewChatGenerationFailedError(err error) *StandardError {
	e := newError(ErrCodeChatGenerationFailed, "Chat response generation failed", err.Error(), true)
	e.cause = err
	return e
}

func NewLeadValidationError(details string) *StandardError {
	return newError(ErrCodeLeadValidationFailed, "Lead data is invalid", details, false)
}

func NewLeadCaptureFailedError(err error) *StandardError {
	e := newError(ErrCodeLeadCaptureFailed, "CRM lead capture failed", err.Error(), true)
	e.cause = err
	return e
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), err.Error(), true)
	e.cause = err
	return e
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	e := newError(ErrCodeDatabaseInsertFailed, "Database insert failed", err.Error(), true)
	e.cause = err
	return e
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	e := newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
	e.cause = err
	return e
}

func NewTimeoutError(service string, err error) *StandardError {
	e := newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
	e.cause = err
	return e
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// ==========================
// 5. Inspection helpers
// ==========================

// As unwraps err into a *StandardError when one is in the chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// KindOf classifies any error. Untyped errors are KindUnknown unless they are deadline errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if stdErr, ok := As(err); ok {
		return stdErr.Kind()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth another attempt against the same provider.
// Untyped errors default to retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if stdErr, ok := As(err); ok {
		return stdErr.Retryable
	}
	return true
}

// ==========================
// 6. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeChatInputInvalid:       "CHAT_INPUT_INVALID",
	ErrCodeChatGenerationFailed:   "CHAT_GENERATION_FAILED",
	ErrCodeNoProviderSucceeded:    "CHAT_GENERATION_FAILED",
	ErrCodeRuleEngineFailed:       "CHAT_GENERATION_FAILED",
	ErrCodeLeadValidationFailed:   "LEAD_VALIDATION_FAILED",
	ErrCodeLeadCaptureFailed:      "LEAD_CAPTURE_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeDatabaseInsertFailed:   "DATABASE_INSERT_FAILED",
}

// GetRetryCount returns the job-level retry budget for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLeadCaptureFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeChatGenerationFailed,
		ErrCodeTimeout:
		return 2

	case ErrCodeProviderTimeout,
		ErrCodeProviderRequestFailed,
		ErrCodeProviderEmptyResponse:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stdErr.Provider != "" {
		vars["provider"] = stdErr.Provider
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// IsRetryableErrorCode checks if an error code carries a job-level retry budget.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PROVIDER") || strings.Contains(codeStr, "RULE_ENGINE") || codeStr == string(ErrCodeNoProviderSucceeded):
		return "AI_PROVIDER"
	case strings.HasPrefix(codeStr, "CHAT"):
		return "CHAT"
	case strings.HasPrefix(codeStr, "LEAD"):
		return "CRM"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
