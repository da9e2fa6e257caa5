package jobqueue

import (
	"context"
	"time"

	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
)

// withRetry runs op up to the configured attempt ceiling. Only failures
// classified as transient are retried; anything else surfaces at once.
// Backoff is linear: the delay before attempt n+1 is RetryBase*n.
func (q *Queue) withRetry(ctx context.Context, jobID string, op func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= q.cfg.RetryAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !openai.IsTransient(err) || attempt == q.cfg.RetryAttempts {
			return "", err
		}

		q.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Int("attempt", attempt).
			Int("max_attempts", q.cfg.RetryAttempts).
			Msg("jobqueue: transient failure, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(q.cfg.RetryBase * time.Duration(attempt)):
		}
	}
	return "", lastErr
}
