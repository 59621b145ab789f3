package providers

import (
	"context"
	"errors"

	apperrors "retail-chat-workers/internal/common/errors"
)

// transportError maps a failed vendor call onto the provider error taxonomy.
// Context errors pass through untouched so the orchestrator can tell a
// deadline from a vendor failure.
func transportError(provider string, err error, status func(error) (int, string, bool)) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if status != nil {
		if code, body, ok := status(err); ok {
			return apperrors.FromHTTPStatus(provider, code, body)
		}
	}
	return apperrors.NewProviderRequestError(provider, err)
}
