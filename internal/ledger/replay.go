package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// replayWindow bounds how long a credit reason key blocks replays.
const replayWindow = 48 * time.Hour

// ReplayGuard answers whether a credit reason key is being seen for
// the first time inside the replay window. It exists so best-effort
// retries of the post-check-in pipeline cannot double-credit coins.
type ReplayGuard interface {
	FirstUse(key string) bool
}

// RedisGuard backs the guard with SETNX + TTL so the window survives
// process restarts.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) FirstUse(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := g.client.SetNX(ctx, "ledger:credit:"+key, 1, replayWindow).Result()
	if err != nil {
		// On redis failure the credit goes through; double-crediting a
		// retry is less harmful than silently dropping a first credit.
		slog.Warn("replay guard redis failure, allowing credit", "key", key, "error", err)
		return true
	}
	return ok
}

// MemoryGuard is the in-process fallback when redis is not configured.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]time.Time)}
}

func (g *MemoryGuard) FirstUse(key string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.seen) > 10000 {
		for k, t := range g.seen {
			if now.Sub(t) > replayWindow {
				delete(g.seen, k)
			}
		}
	}

	if t, ok := g.seen[key]; ok && now.Sub(t) <= replayWindow {
		return false
	}
	g.seen[key] = now
	return true
}
