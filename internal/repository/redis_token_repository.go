package repository

import (
	"context"
	"encoding/json"
	"errors"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/util"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

// RedisTokenRepository хранит сессию одним JSON значением, SET и DEL атомарны
type RedisTokenRepository struct {
	client     *config.RedisClient
	prefix     string
	sessionKey string
	ttl        time.Duration
}

func NewRedisTokenRepository(rdb *config.RedisClient, prefix, sessionKey string, ttl time.Duration) *RedisTokenRepository {
	return &RedisTokenRepository{client: rdb, prefix: prefix, sessionKey: sessionKey, ttl: ttl}
}

func (r *RedisTokenRepository) Load(ctx context.Context) (*model.AuthenticatedUser, error) {
	val, err := r.client.Client.Get(ctx, r.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, util.LogError("[RedisTokenRepo] ошибка чтения сессии из Redis", err)
	}

	var user model.AuthenticatedUser
	if err := json.Unmarshal(val, &user); err != nil {
		return nil, util.LogError("[RedisTokenRepo] ошибка десериализации сессии", err)
	}
	return &user, nil
}

func (r *RedisTokenRepository) Store(ctx context.Context, user *model.AuthenticatedUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return util.LogError("[RedisTokenRepo] ошибка сериализации сессии", err)
	}

	cmd := r.client.Client.Set(ctx, r.key(), data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("[RedisTokenRepo] ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("[RedisTokenRepo] неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

func (r *RedisTokenRepository) Delete(ctx context.Context) error {
	if err := r.client.Client.Del(ctx, r.key()).Err(); err != nil {
		return util.LogError("[RedisTokenRepo] ошибка удаления сессии из Redis", err)
	}
	return nil
}

func (r *RedisTokenRepository) key() string {
	return r.prefix + r.sessionKey
}
