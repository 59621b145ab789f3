package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      ErrorCode
		kind      Kind
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, ErrCodeProviderAuthFailed, KindAuth, false},
		{"forbidden", http.StatusForbidden, "", ErrCodeProviderAuthFailed, KindAuth, false},
		{"rate limited", http.StatusTooManyRequests, "slow down", ErrCodeProviderQuotaExceeded, KindQuota, false},
		{"quota in body", http.StatusBadRequest, `{"error":{"type":"insufficient_quota"}}`, ErrCodeProviderQuotaExceeded, KindQuota, false},
		{"server error", http.StatusInternalServerError, "oops", ErrCodeProviderRequestFailed, KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromHTTPStatus("openai", tt.status, tt.body)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.kind, err.Kind())
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, "openai", err.Provider)
		})
	}
}

func TestProviderTimeoutError(t *testing.T) {
	err := NewProviderTimeoutError("google", 1500*time.Millisecond)

	assert.Equal(t, KindTimeout, err.Kind())
	assert.True(t, err.Retryable)
	assert.Equal(t, int64(1500), err.Metadata["timeoutMs"])
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "PROVIDER_TIMEOUT/google")
}

func TestKindOfAndIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("attempt 2: %w", NewProviderQuotaError("anthropic", "429"))

	assert.Equal(t, KindQuota, KindOf(wrapped))
	assert.False(t, IsRetryable(wrapped))

	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindUnknown, KindOf(stderrors.New("socket closed")))
	assert.True(t, IsRetryable(stderrors.New("socket closed")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewLeadCaptureFailedError(stderrors.New("zoho down"))
	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "LEAD_CAPTURE_FAILED", bpmnErr.Code)
	assert.Equal(t, 3, bpmnErr.Retries)
	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "LEAD_CAPTURE_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "zoho down", vars["errorDetails"])

	nonRetryable := ConvertToBPMNError(NewChatInputInvalidError("empty message"))
	assert.Equal(t, 0, nonRetryable.Retries)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AI_PROVIDER", GetErrorCategory(ErrCodeProviderTimeout))
	assert.Equal(t, "AI_PROVIDER", GetErrorCategory(ErrCodeNoProviderSucceeded))
	assert.Equal(t, "CHAT", GetErrorCategory(ErrCodeChatInputInvalid))
	assert.Equal(t, "CRM", GetErrorCategory(ErrCodeLeadCaptureFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.False(t, plain.Retryable)

	orig := NewChatGenerationFailedError(stderrors.New("x"))
	got := Normalize(fmt.Errorf("wrap: %w", orig))
	require.Same(t, orig, got)
}

func TestRemainingRetries(t *testing.T) {
	assert.Equal(t, int32(2), remainingRetries(3, 3))
	assert.Equal(t, int32(1), remainingRetries(5, 1))
	assert.Equal(t, int32(0), remainingRetries(1, 3))
	assert.Equal(t, int32(0), remainingRetries(3, 0))
}
