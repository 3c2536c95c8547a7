package startup

import (
	"context"
	"os"
	"time"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/presence"
)

// ConnectPresenceWithRetry connects the Redis presence store with backoff.
// An empty URL means single-instance mode: in-memory presence, no Redis.
func ConnectPresenceWithRetry(redisURL string, maxWait time.Duration) presence.Store {
	if redisURL == "" {
		logger.Infof("presence: REDIS_URL empty, using in-memory store")
		return presence.NewMemory()
	}
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err := presence.NewRedis(ctx, redisURL)
		cancel()
		if err != nil {
			if time.Now().After(deadline) {
				logger.Errorf("redis (gave up after %v): %v", maxWait, err)
				os.Exit(1)
			}
			logger.Errorf("redis connect failed, retry in %v: %v", backoff, err)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		return store
	}
}
