package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
		{"malformed", fmt.Errorf("%w: bad", ErrMalformed), false},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"openai 500", &openai.APIError{HTTPStatusCode: 500}, true},
		{"openai 400", &openai.APIError{HTTPStatusCode: 400}, false},
		{"genai 503", fmt.Errorf("generate: %w", genai.APIError{Code: 503}), true},
		{"genai 403", genai.APIError{Code: 403}, false},
		{"network", errors.New("connection reset"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Fatalf("retryable(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetrierStopsOnSuccess(t *testing.T) {
	r := retrier{maxRetries: 3, base: time.Millisecond}
	calls := 0
	err := r.do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetrierGivesUp(t *testing.T) {
	r := retrier{maxRetries: 2, base: time.Millisecond}
	calls := 0
	cause := errors.New("down")
	err := r.do(context.Background(), "op", func(context.Context) error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetrierHonoursCancel(t *testing.T) {
	r := retrier{maxRetries: 5, base: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.do(ctx, "op", func(context.Context) error {
			calls++
			return errors.New("flaky")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v, want canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retrier did not return after cancel")
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}
