package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"schoollend/internal/config"
	"schoollend/internal/wizard"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "wizard_session:"
	rateLimitKeyPrefix = "rate_limit:"
)

var errNilRedisClient = errors.New("redis client is nil")

// fixedWindowScript: INCR и PEXPIRE одной командой, окно начинается с первого запроса.
var fixedWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisSessionRepository keeps wizard flows as JSON under wizard_session:<id>.
// Every write renews the TTL, so an active wizard does not expire mid-flow.
type RedisSessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSessionRepository(client redis.UniversalClient, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// GetFlow returns nil for a missing or undecodable session. A corrupt entry is
// dropped rather than reported, so the failover wrapper does not mistake it for an outage.
func (r *RedisSessionRepository) GetFlow(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	if r.client == nil {
		return nil, errNilRedisClient
	}

	key := sessionKey(sessionID)
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	flow := new(wizard.Flow)
	if err := json.Unmarshal(raw, flow); err != nil || flow.SessionID != sessionID {
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("redis drop corrupt %s: %w", key, delErr)
		}
		return nil, nil
	}
	return flow, nil
}

func (r *RedisSessionRepository) SetFlow(ctx context.Context, flow *wizard.Flow) error {
	if r.client == nil {
		return errNilRedisClient
	}
	if flow == nil || flow.SessionID == "" {
		return errors.New("wizard flow without session id")
	}

	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode wizard flow: %w", err)
	}
	key := sessionKey(flow.SessionID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisSessionRepository) ClearFlow(ctx context.Context, sessionID string) error {
	if r.client == nil {
		return errNilRedisClient
	}
	key := sessionKey(sessionID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// CheckRateLimit counts attempts in a fixed window that opens with the first one.
func (r *RedisSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilRedisClient
	}

	ms := window.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	count, err := fixedWindowScript.Run(ctx, r.client, []string{rateLimitKeyPrefix + key}, ms).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client redis.UniversalClient) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
