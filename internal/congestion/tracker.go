package congestion

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

const signalKey = "sequencer:congestion"

// Lua script: halve the stored signal, dropping it entirely below 1.
// Runs atomically so concurrent Observe calls are never lost.
var decayScript = redis.NewScript(`
	local v = tonumber(redis.call("GET", KEYS[1]) or "0")
	v = math.floor(v / 2)
	if v < 1 then
		redis.call("DEL", KEYS[1])
	else
		redis.call("SET", KEYS[1], v)
	end
	return v
`)

// Tracker is a Redis-backed congestion signal. Each accepted submission
// bumps the signal; a background loop halves it on a fixed interval, so the
// signal approximates recent submission pressure.
type Tracker struct {
	client *redis.Client
	logger *logging.Logger
}

// NewTracker creates a tracker on the given Redis client.
func NewTracker(client *redis.Client, logger *logging.Logger) *Tracker {
	return &Tracker{
		client: client,
		logger: logger,
	}
}

// Current returns the tracked signal. Absence reads as zero, which the
// estimator floors to 1.
func (t *Tracker) Current(ctx context.Context) (uint64, error) {
	val, err := t.client.Get(ctx, signalKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Observe records one accepted submission.
func (t *Tracker) Observe(ctx context.Context) {
	if err := t.client.Incr(ctx, signalKey).Err(); err != nil {
		t.logger.Warn("Failed to record congestion observation", "error", err)
	}
}

// runDecay halves the signal every interval until the context is cancelled.
func (t *Tracker) runDecay(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := decayScript.Run(ctx, t.client, []string{signalKey}).Err(); err != nil && err != redis.Nil {
				t.logger.Warn("Failed to decay congestion signal", "error", err)
			}
		}
	}
}
