package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKVRepo はRedisのSTRING値を使用する媒体。
// 値は期限なしで保存する。
type RedisKVRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisKVRepo はRedisKVRepoを生成する。prefixはキーの名前空間に使う。
func NewRedisKVRepo(client redis.UniversalClient, prefix string) *RedisKVRepo {
	return &RedisKVRepo{client: client, prefix: prefix}
}

// NewRedisClient はREDIS_URL形式の接続文字列からクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URLの解析に失敗しました: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *RedisKVRepo) key(k string) string {
	return r.prefix + k
}

// Read はkeyの値を取得する。
func (r *RedisKVRepo) Read(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("値の取得に失敗しました: %w", err)
	}
	return v, true, nil
}

// Write はkeyに値を保存する。
func (r *RedisKVRepo) Write(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("値の保存に失敗しました: %w", err)
	}
	return nil
}

// Delete はkeyを削除する。
func (r *RedisKVRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("値の削除に失敗しました: %w", err)
	}
	return nil
}

// Ping はRedisへの接続を確認する。
func (r *RedisKVRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
