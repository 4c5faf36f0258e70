package credentials

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskflow/taskflow-go/users"
)

const (
	accessTokenKey  = "taskflow:access_token"
	refreshTokenKey = "taskflow:refresh_token"
	userKey         = "taskflow:user"

	redisOpTimeout = 2 * time.Second
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps credentials in Redis so several headless workers can share
// one session. The Store interface has no error returns, so Redis failures
// degrade to "absent" on reads and are dropped on writes; the next refresh or
// login repairs the stored state.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AccessToken() string {
	ctx, cancel := opContext()
	defer cancel()
	val, err := s.client.Get(ctx, accessTokenKey).Result()
	if err != nil {
		return ""
	}
	return val
}

func (s *RedisStore) RefreshToken() string {
	ctx, cancel := opContext()
	defer cancel()
	val, err := s.client.Get(ctx, refreshTokenKey).Result()
	if err != nil {
		return ""
	}
	return val
}

func (s *RedisStore) User() *users.UserProfile {
	ctx, cancel := opContext()
	defer cancel()
	data, err := s.client.Get(ctx, userKey).Bytes()
	if err != nil {
		return nil
	}
	var u users.UserProfile
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}

func (s *RedisStore) SetTokens(access, refresh string) {
	ctx, cancel := opContext()
	defer cancel()
	_, _ = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, accessTokenKey, access, 0)
		pipe.Set(ctx, refreshTokenKey, refresh, 0)
		return nil
	})
}

func (s *RedisStore) SetUser(user *users.UserProfile) {
	ctx, cancel := opContext()
	defer cancel()
	if user == nil {
		_ = s.client.Del(ctx, userKey).Err()
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, userKey, data, 0).Err()
}

func (s *RedisStore) Clear() {
	ctx, cancel := opContext()
	defer cancel()
	_ = s.client.Del(ctx, accessTokenKey, refreshTokenKey, userKey).Err()
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}
