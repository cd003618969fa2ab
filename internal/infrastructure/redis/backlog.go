package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResyncBacklog keeps ingredient ids whose availability pass failed in a
// Redis set, so the backlog survives restarts and is shared by replicas.
type ResyncBacklog struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return rdb, nil
}

func NewResyncBacklog(client *redis.Client, key string, log *zap.Logger) *ResyncBacklog {
	return &ResyncBacklog{
		client: client,
		key:    key,
		log:    log,
	}
}

func (b *ResyncBacklog) Push(ctx context.Context, ingredientIDs ...int64) error {
	if len(ingredientIDs) == 0 {
		return nil
	}

	if err := b.client.SAdd(ctx, b.key, memberArgs(ingredientIDs)...).Err(); err != nil {
		return fmt.Errorf("adding to resync backlog: %w", err)
	}
	return nil
}

// Peek returns up to n distinct ids and leaves them in the set, so a crash
// before Ack loses nothing. Members that do not parse are removed with a
// warning.
func (b *ResyncBacklog) Peek(ctx context.Context, n int) ([]int64, error) {
	members, err := b.client.SRandMemberN(ctx, b.key, int64(n)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resync backlog: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			b.log.Warn("dropping malformed backlog member", zap.String("member", m))
			if remErr := b.client.SRem(ctx, b.key, m).Err(); remErr != nil {
				b.log.Warn("failed to drop malformed backlog member", zap.String("member", m), zap.Error(remErr))
			}
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Ack removes ids whose availability pass has committed.
func (b *ResyncBacklog) Ack(ctx context.Context, ingredientIDs ...int64) error {
	if len(ingredientIDs) == 0 {
		return nil
	}

	if err := b.client.SRem(ctx, b.key, memberArgs(ingredientIDs)...).Err(); err != nil {
		return fmt.Errorf("acking resync backlog: %w", err)
	}
	return nil
}

func (b *ResyncBacklog) Len(ctx context.Context) (int64, error) {
	n, err := b.client.SCard(ctx, b.key).Result()
	if err != nil {
		return 0, fmt.Errorf("reading resync backlog size: %w", err)
	}
	return n, nil
}

func memberArgs(ids []int64) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
