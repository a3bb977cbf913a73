package remote

import (
	"context"
	"errors"

	"github.com/intelliinsight/paper-analysis/internal/infrastructure/resilience"
)

// classifyRemoteError keeps retries for transient transport and server-side
// failures. Context expiry means the pipeline's timeout budget is spent, so
// the fallback must take over immediately.
func classifyRemoteError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			Retryable:     statusErr.status >= 500,
			RecordFailure: true,
		}
	}

	// Anything else is a transport-level failure.
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
