package ldap

import (
	"context"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Connector establishes directory sessions with a bounded number of attempts.
type Connector struct {
	dial       DialFunc
	maxRetries int
	retryDelay time.Duration

	// wait blocks for d or until ctx is done. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewConnector creates a connector that makes up to maxRetries attempts,
// pausing retryDelay between failed attempts. maxRetries below 1 is treated as 1.
func NewConnector(dial DialFunc, maxRetries int, retryDelay time.Duration) *Connector {
	return &Connector{
		dial:       dial,
		maxRetries: max(maxRetries, 1),
		retryDelay: retryDelay,
		wait:       waitContext,
	}
}

// NewConnectorFromConfig creates a connector dialing the configured server.
func NewConnectorFromConfig(cfg *ConnectionConfig) (*Connector, error) {
	dial, err := NewDialer(cfg)
	if err != nil {
		return nil, err
	}
	return NewConnector(dial, cfg.MaxRetries, cfg.RetryDelay), nil
}

// Connect returns the first session that could be established. After the last
// allowed attempt fails it returns a *ConnectionExhaustedError wrapping the last cause.
func (c *Connector) Connect(ctx context.Context) (Session, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		LogConnectionEvent(ctx, "connection_attempt", map[string]any{
			"attempt":     attempt,
			"max_retries": c.maxRetries,
		})

		start := time.Now()
		session, err := c.dial(ctx)
		if err == nil {
			LogConnectionEvent(ctx, "connection_established", map[string]any{
				"attempt":     attempt,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return session, nil
		}

		lastErr = err
		LogConnectionEvent(ctx, "connection_failed", map[string]any{
			"attempt":        attempt,
			"max_retries":    c.maxRetries,
			"error":          err.Error(),
			"error_category": string(CategoryOf(err)),
			"retryable":      IsRetryable(err),
		})

		// Don't wait after the last attempt
		if attempt == c.maxRetries {
			break
		}

		LogConnectionEvent(ctx, "connection_retry_wait", map[string]any{
			"attempt":        attempt,
			"retry_delay_ms": c.retryDelay.Milliseconds(),
		})
		if err := c.wait(ctx, c.retryDelay); err != nil {
			tflog.SubsystemWarn(ctx, subsystem, "Connection retry cancelled", map[string]any{
				"context_error": err.Error(),
				"attempt":       attempt,
			})
			return nil, &ConnectionExhaustedError{Attempts: attempt, Cause: err}
		}
	}

	LogConnectionEvent(ctx, "connections_exhausted", map[string]any{
		"total_attempts": c.maxRetries,
		"final_error":    lastErr.Error(),
	})

	return nil, &ConnectionExhaustedError{Attempts: c.maxRetries, Cause: lastErr}
}

// waitContext sleeps for d unless ctx is done first.
func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
