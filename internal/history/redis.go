package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solaracontrol/mission-control/internal/model"
	natsclient "github.com/solaracontrol/mission-control/internal/nats"
	"github.com/solaracontrol/mission-control/pkg/metrics"
)

const (
	redisKeyPrefix = "mc:history"

	// DefaultRetention caps the turns kept per (visitor, agent) list.
	DefaultRetention = 500
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client for the history store.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// RedisStore keeps one list of JSON-encoded turns per (visitor, agent).
type RedisStore struct {
	rdb       redis.Cmdable
	retention int64
	now       func() time.Time
}

// NewRedisStore creates a Redis-backed history store. A retention <= 0 uses
// DefaultRetention.
func NewRedisStore(rdb redis.Cmdable, retention int) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{rdb: rdb, retention: int64(retention), now: time.Now}
}

// redisKey encodes both ids as subject-safe tokens, so a ':' inside an id
// cannot shift the key boundary.
func redisKey(visitorID, agentSlug string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, natsclient.Token(visitorID), natsclient.Token(agentSlug))
}

// GetHistory returns the most recent limit turns, oldest first. A limit <= 0
// returns every retained turn.
func (s *RedisStore) GetHistory(ctx context.Context, visitorID, agentSlug string, limit int) ([]model.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	vals, err := s.rdb.LRange(ctx, redisKey(visitorID, agentSlug), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]model.ConversationTurn, 0, len(vals))
	for _, v := range vals {
		var t model.ConversationTurn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// AppendTurn pushes one turn and trims the list to the retention cap.
func (s *RedisStore) AppendTurn(ctx context.Context, visitorID, agentSlug string, role model.TurnRole, content string) error {
	if err := validateTurn(visitorID, agentSlug, role); err != nil {
		return err
	}

	data, err := json.Marshal(model.ConversationTurn{Role: role, Content: content, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := redisKey(visitorID, agentSlug)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -s.retention, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	metrics.HistoryTurnsTotal.WithLabelValues(agentSlug, string(role)).Inc()
	return nil
}
