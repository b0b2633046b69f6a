package challenges

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gophauth:challenge:"

// RedisRepository keeps challenges as JSON values with a TTL matching
// their expiry. Consume relies on GETDEL for atomicity.
type RedisRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

type redisChallenge struct {
	ID        string    `json:"id"`
	RefKind   string    `json:"ref_kind"`
	Ref       string    `json:"ref"`
	Challenge string    `json:"challenge"`
	Salt      string    `json:"salt,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toRedis(c *models.AuthChallenge) redisChallenge {
	return redisChallenge{
		ID:        c.ID,
		RefKind:   string(c.UserRef.Kind),
		Ref:       c.UserRef.Value,
		Challenge: c.Challenge,
		Salt:      c.Salt,
		ExpiresAt: c.ExpiresAt,
	}
}

func (rc redisChallenge) model() (*models.AuthChallenge, error) {
	kind, err := models.ParseUserRefKind(rc.RefKind)
	if err != nil {
		return nil, err
	}
	return &models.AuthChallenge{
		ID:        rc.ID,
		UserRef:   models.UserRef{Kind: kind, Value: rc.Ref},
		Challenge: rc.Challenge,
		Salt:      rc.Salt,
		ExpiresAt: rc.ExpiresAt,
	}, nil
}

func (r *RedisRepository) Create(ctx context.Context, c *models.AuthChallenge) error {
	payload, err := json.Marshal(toRedis(c))
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	ttl := c.ExpiresAt.Sub(r.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	if err := r.client.Set(ctx, redisKeyPrefix+c.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Consume(ctx context.Context, id string) (*models.AuthChallenge, error) {
	raw, err := r.client.GetDel(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return decode(raw)
}

func (r *RedisRepository) List(ctx context.Context) ([]models.AuthChallenge, error) {
	var result []models.AuthChallenge

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
		c, err := decode(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return result, nil
}

// DeleteExpired is a no-op: Redis evicts keys on TTL.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func decode(raw []byte) (*models.AuthChallenge, error) {
	var rc redisChallenge
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	c, err := rc.model()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return c, nil
}
