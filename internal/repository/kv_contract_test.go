package repository

import (
	"context"
	"testing"
)

// 各媒体がKeyValueRepositoryインターフェースを満たすことを検証
var (
	_ KeyValueRepository = (*MemoryKVRepo)(nil)
	_ KeyValueRepository = (*FileKVRepo)(nil)
	_ KeyValueRepository = (*PostgresKVRepo)(nil)
	_ KeyValueRepository = (*RedisKVRepo)(nil)
)

// runKVContract はすべての媒体に共通する振る舞いを検証する。
func runKVContract(t *testing.T, repo KeyValueRepository) {
	t.Helper()
	ctx := context.Background()
	const key = "favoriteWatches"

	t.Run("存在しないキーはfound=false", func(t *testing.T) {
		v, found, err := repo.Read(ctx, key)
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if found || v != "" {
			t.Errorf("Read = (%q, %v), want (\"\", false)", v, found)
		}
	})

	t.Run("書き込んだ値を読み出せる", func(t *testing.T) {
		if err := repo.Write(ctx, key, `[{"id":"1"}]`); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		v, found, err := repo.Read(ctx, key)
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if !found || v != `[{"id":"1"}]` {
			t.Errorf("Read = (%q, %v), want value and true", v, found)
		}
	})

	t.Run("上書きすると新しい値になる", func(t *testing.T) {
		if err := repo.Write(ctx, key, `[]`); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		v, _, err := repo.Read(ctx, key)
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if v != `[]` {
			t.Errorf("Read = %q, want %q", v, `[]`)
		}
	})

	t.Run("削除後は存在しない", func(t *testing.T) {
		if err := repo.Delete(ctx, key); err != nil {
			t.Fatalf("Delete error: %v", err)
		}
		_, found, err := repo.Read(ctx, key)
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if found {
			t.Error("key should be absent after Delete")
		}
	})

	t.Run("存在しないキーの削除は成功", func(t *testing.T) {
		if err := repo.Delete(ctx, key); err != nil {
			t.Fatalf("Delete of absent key error: %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Fatalf("Ping error: %v", err)
		}
	})
}
