package gorestx

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/restxlabs/gorestx/zaputils"
)

// RetryController tracks the retry decisions for a single logical
// request.
type RetryController interface {
	ShouldRetry(err error) (time.Duration, bool)
}

// RetryManager produces a RetryController per logical request.
type RetryManager interface {
	NewRetryController() RetryController
}

// RetryManagerFixed allows a fixed total number of attempts for
// requests failing with transient transport errors. HTTP status errors
// are never retried by this layer.
type RetryManagerFixed struct {
	maxAttempts uint32
}

// NewRetryManagerFixed builds a retry manager with a total attempt
// budget. A budget of 2 means each request is tried twice before the
// last error surfaces; 0 and 1 both mean a single attempt.
func NewRetryManagerFixed(maxAttempts uint32) *RetryManagerFixed {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &RetryManagerFixed{
		maxAttempts: maxAttempts,
	}
}

func (m *RetryManagerFixed) NewRetryController() RetryController {
	return &retryControllerFixed{
		maxAttempts: m.maxAttempts,
	}
}

type retryControllerFixed struct {
	maxAttempts uint32
	attempts    uint32
}

func (rc *retryControllerFixed) ShouldRetry(err error) (time.Duration, bool) {
	var statusErr *HttpStatusError
	if errors.As(err, &statusErr) {
		return 0, false
	}

	rc.attempts++
	if rc.attempts >= rc.maxAttempts {
		return 0, false
	}

	return 0, true
}

// orchestrateRequestRetries drives the attempt loop for one logical
// request. reset, when non-nil, rewinds the request body before every
// re-attempt. The error from the final attempt is the one returned.
func orchestrateRequestRetries[RespT any](
	ctx context.Context,
	logger *zap.Logger,
	rs RetryManager,
	method, path string,
	reset func() error,
	fn func() (RespT, error),
) (RespT, error) {
	var emptyResp RespT
	var opRetryController RetryController
	attempt := 1
	for {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		if opRetryController == nil {
			opRetryController = rs.NewRetryController()
		}

		retryTime, shouldRetry := opRetryController.ShouldRetry(err)
		if !shouldRetry {
			return emptyResp, err
		}

		logger.Warn("request attempt failed, retrying",
			zaputils.RequestLine("request", method, path),
			zap.Int("attempt", attempt),
			zap.Error(err))
		transportRetries.Add(ctx, 1)

		if reset != nil {
			if resetErr := reset(); resetErr != nil {
				return emptyResp, contextualError{
					Message: "failed to reset request body for retry",
					Cause:   resetErr,
				}
			}
		}

		if retryTime > 0 {
			select {
			case <-time.After(retryTime):
			case <-ctx.Done():
				return emptyResp, ctx.Err()
			}
		} else {
			select {
			case <-ctx.Done():
				return emptyResp, ctx.Err()
			default:
			}
		}

		attempt++
	}
}
