package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/cenkalti/backoff/v5"
)

// errPending is returned by a poll check while the remote job is still running.
var errPending = errors.New("job still running")

// pollUntilDone calls check every interval until it returns nil, returns an
// error wrapped in backoff.Permanent, or maxWait elapses. Running out of time
// reports transcript.ErrTimeout. The remote job is left running on timeout.
func pollUntilDone(ctx context.Context, interval, maxWait time.Duration, check func(context.Context) error) error {
	pollCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	_, err := backoff.Retry(pollCtx, func() (struct{}, error) {
		return struct{}{}, check(pollCtx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(maxWait),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errPending), pollCtx.Err() != nil:
		return fmt.Errorf("%w after %s", transcript.ErrTimeout, maxWait)
	default:
		return err
	}
}
