package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// retrier 有界指数退避重试（150ms * 2^n）
// retrier retries transient failures with bounded exponential backoff (150ms * 2^n).
type retrier struct {
	maxRetries int
	base       time.Duration
	logger     *zap.Logger
}

func newRetrier(maxRetries int, logger *zap.Logger) retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retrier{maxRetries: maxRetries, base: 150 * time.Millisecond, logger: logger}
}

func (r retrier) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.base * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// 不可重试的错误 / Non-retryable errors
		if !retryable(err) {
			return err
		}
		if attempt < r.maxRetries && r.logger != nil {
			r.logger.Debug("retrying gateway call", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
		}
	}
	if r.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d retries: %w", op, r.maxRetries, lastErr)
}

// retryable 取消、超时、结构错误和 4xx（429 除外）不重试
// retryable reports whether err is transient. Cancellation, malformed responses and
// client errors other than 429 are final.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformed) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

func statusCode(err error) int {
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return oaErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}
