package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
)

// maxBatchesPerTick bounds one sweep so a large backlog cannot hold the lock forever.
const maxBatchesPerTick = 20

// Sweeper closes attempts whose deadline has passed.
type Sweeper interface {
	SweepExpired(ctx context.Context, limit int) (int, error)
}

// Locker is a cross-replica mutual exclusion lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// ----------------------------------------------------------------
// Redis lock
// ----------------------------------------------------------------

// unlockScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by another replica is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX and a per-process token.
type RedisLocker struct {
	rdb   *redis.Client
	token string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, token: uuid.NewString()}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, l.token, ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return unlockScript.Run(ctx, l.rdb, []string{key}, l.token).Err()
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// AutoSubmitWorker periodically auto-submits expired attempts. Only the
// replica holding the sweep lock runs a given tick.
type AutoSubmitWorker struct {
	sweeper   Sweeper
	locker    Locker
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewAutoSubmitWorker(sweeper Sweeper, locker Locker, interval time.Duration, batchSize int, log zerolog.Logger) *AutoSubmitWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AutoSubmitWorker{
		sweeper:   sweeper,
		locker:    locker,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "auto_submit_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled.
func (w *AutoSubmitWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("interval", w.interval).
		Int("batch_size", w.batchSize).
		Msg("AutoSubmitWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("AutoSubmitWorker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one locked sweep and returns how many attempts it closed.
func (w *AutoSubmitWorker) RunOnce(ctx context.Context) int {
	key := config.WorkerKey.AutoSubmitLock

	acquired, err := w.locker.TryLock(ctx, key, 2*w.interval)
	if err != nil {
		w.log.Error().Err(err).Msg("Acquire sweep lock failed")
		return 0
	}
	if !acquired {
		w.log.Debug().Msg("Sweep lock held by another replica")
		return 0
	}
	defer func() {
		// The tick context may already be cancelled on shutdown.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.locker.Unlock(unlockCtx, key); err != nil {
			w.log.Warn().Err(err).Msg("Release sweep lock failed")
		}
	}()

	total := 0
	for batch := 0; batch < maxBatchesPerTick; batch++ {
		n, err := w.sweeper.SweepExpired(ctx, w.batchSize)
		total += n
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
			break
		}
		if n < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.log.Info().Int("closed", total).Msg("Expired attempts auto-submitted")
	}
	return total
}
