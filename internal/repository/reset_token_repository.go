package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrTokenNotFound = errors.New("token not found")

const resetTokenPrefix = "apart:password_reset:"

// ResetTokenRepository 密码重置令牌存在 Redis，过期交给 TTL
type ResetTokenRepository struct {
	Client *redis.Client
}

func NewResetTokenRepository(client *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{Client: client}
}

func (r *ResetTokenRepository) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return r.Client.Set(ctx, resetTokenPrefix+token, userID, ttl).Err()
}

// Consume 读取并删除令牌，保证只能使用一次
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (uint, error) {
	val, err := r.Client.GetDel(ctx, resetTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt reset token value %q: %w", val, err)
	}
	return uint(id), nil
}
