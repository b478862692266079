package store

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/pkg/errors"
)

// Redis keeps the choice under one key, shared by every process using it.
type Redis struct {
	client *redis.Client
	key    string
}

// DialRedis connects and pings the server described by cred.
func DialRedis(ctx context.Context, cred *config.DBCredential, key string) (*Redis, error) {
	db, _ := strconv.ParseInt(cred.Database, 10, 64)
	client := redis.NewClient(&redis.Options{
		Addr: cred.GetRedisAddress(),
		DB:   int(db),
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping to redis")
	}
	return NewRedis(client, key), nil
}

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) (string, bool, error) {
	id, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get choice")
	}
	return id, id != "", nil
}

func (r *Redis) Save(ctx context.Context, id string) error {
	return errors.Wrap(r.client.Set(ctx, r.key, id, 0).Err(), "set choice")
}

func (r *Redis) Clear(ctx context.Context) error {
	return errors.Wrap(r.client.Del(ctx, r.key).Err(), "delete choice")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
