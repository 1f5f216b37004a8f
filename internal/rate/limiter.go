package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldTokens     = "tokens"
	fieldLastRefill = "last_refill"

	defaultPrefix = "ratebucket"
)

// Config holds leaky-bucket tuning parameters. Capacity is the burst size,
// LeakRate the number of tokens restored per second.
type Config struct {
	Capacity float64
	LeakRate float64
	Prefix   string
	// Atomic routes Admit through a server-side Lua script instead of the
	// default fetch-modify-store sequence.
	Atomic bool
}

// Limiter enforces a per-fingerprint request budget using Redis hashes.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// admitScript performs refill, verdict, and persistence in one server-side
// step. ARGV: now (unix seconds, fractional), capacity, leak rate, bucket
// TTL in seconds. Returns 1 to allow, 0 to reject.
const admitScript = `
local tokens = tonumber(redis.call("HGET", KEYS[1], "tokens"))
local last = tonumber(redis.call("HGET", KEYS[1], "last_refill"))
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local leak = tonumber(ARGV[3])

if tokens == nil or last == nil then
  tokens = cap
  last = now
else
  local elapsed = now - last
  if elapsed < 0 then
    elapsed = 0
  end
  tokens = tokens + elapsed * leak
  if tokens > cap then
    tokens = cap
  end
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", KEYS[1], ARGV[4])
return allowed
`

var admitLua = redis.NewScript(admitScript)

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// ClientKey derives the bucket key material for a client: the hex-encoded
// SHA-256 of the session cookie, user agent, and IP. Missing components
// still produce a stable key for the remaining ones.
func ClientKey(sessionID, userAgent, ip string) string {
	raw := "session:" + sessionID + "|ua:" + userAgent + "|ip:" + ip
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Admit spends one token from the client's bucket. It returns nil when the
// request is allowed, ErrRateLimited when the bucket is empty, and
// ErrRedisUnavailable when the store cannot be reached — which admission
// callers must treat as a reject.
func (l *Limiter) Admit(ctx context.Context, key string) error {
	if l.config.Atomic {
		return l.admitAtomic(ctx, key)
	}
	return l.admitReadModifyWrite(ctx, key)
}

func (l *Limiter) key(clientKey string) string {
	return l.config.Prefix + ":" + clientKey
}

// bucketTTL is how long an untouched bucket stays in Redis: the time a
// fully drained bucket needs to refill, doubled.
func (l *Limiter) bucketTTL() time.Duration {
	seconds := l.config.Capacity / l.config.LeakRate * 2
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds * float64(time.Second))
}

func (l *Limiter) admitReadModifyWrite(ctx context.Context, clientKey string) error {
	key := l.key(clientKey)
	now := float64(l.now().UnixNano()) / float64(time.Second)

	state, err := l.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	tokens := l.config.Capacity
	if len(state) != 0 {
		storedTokens, tokensErr := strconv.ParseFloat(state[fieldTokens], 64)
		lastRefill, lastErr := strconv.ParseFloat(state[fieldLastRefill], 64)
		if tokensErr == nil && lastErr == nil {
			elapsed := now - lastRefill
			if elapsed < 0 {
				elapsed = 0
			}
			tokens = storedTokens + elapsed*l.config.LeakRate
			if tokens > l.config.Capacity {
				tokens = l.config.Capacity
			}
		}
		// A corrupt bucket re-initializes at full capacity.
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
	}

	// The refilled value is persisted even on reject so a starved client's
	// refill progress is never lost.
	if err := l.persist(ctx, key, tokens, now); err != nil {
		return err
	}

	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) persist(ctx context.Context, key string, tokens, now float64) error {
	err := l.redis.HSet(ctx, key,
		fieldTokens, strconv.FormatFloat(tokens, 'f', -1, 64),
		fieldLastRefill, strconv.FormatFloat(now, 'f', -1, 64),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := l.redis.Expire(ctx, key, l.bucketTTL()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) admitAtomic(ctx context.Context, clientKey string) error {
	now := float64(l.now().UnixNano()) / float64(time.Second)

	allowed, err := admitLua.Run(ctx, l.redis,
		[]string{l.key(clientKey)},
		strconv.FormatFloat(now, 'f', -1, 64),
		strconv.FormatFloat(l.config.Capacity, 'f', -1, 64),
		strconv.FormatFloat(l.config.LeakRate, 'f', -1, 64),
		int(l.bucketTTL().Seconds()),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if allowed != 1 {
		return ErrRateLimited
	}
	return nil
}
