package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryKVRepo はプロセス内マップを使用する揮発性の媒体。
// テストとSTORAGE_BACKEND=memoryで使用する。障害注入用のフックを持つ。
type MemoryKVRepo struct {
	mu       sync.Mutex
	data     map[string]string
	readErr  error
	writeErr error
	latency  time.Duration
	writes   int
}

// NewMemoryKVRepo はMemoryKVRepoを生成する。
func NewMemoryKVRepo() *MemoryKVRepo {
	return &MemoryKVRepo{data: make(map[string]string)}
}

// SetReadError はRead/Pingが返すエラーを設定する。nilで解除。
func (r *MemoryKVRepo) SetReadError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

// SetWriteError はWrite/Deleteが返すエラーを設定する。nilで解除。
func (r *MemoryKVRepo) SetWriteError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
}

// SetLatency は各操作の前に挿入する待ち時間を設定する。
func (r *MemoryKVRepo) SetLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency = d
}

// Writes はこれまでに成功したWrite/Deleteの回数を返す。
func (r *MemoryKVRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Seed はフックを経由せずに値を直接設定する。
func (r *MemoryKVRepo) Seed(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

// Read はkeyの値を返す。
func (r *MemoryKVRepo) Read(ctx context.Context, key string) (string, bool, error) {
	if err := r.wait(ctx); err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return "", false, r.readErr
	}
	v, ok := r.data[key]
	return v, ok, nil
}

// Write はkeyに値を保存する。
func (r *MemoryKVRepo) Write(ctx context.Context, key, value string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.data[key] = value
	r.writes++
	return nil
}

// Delete はkeyを削除する。
func (r *MemoryKVRepo) Delete(ctx context.Context, key string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	delete(r.data, key)
	r.writes++
	return nil
}

// Ping は読み取りエラーが設定されていればそれを返す。
func (r *MemoryKVRepo) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

func (r *MemoryKVRepo) wait(ctx context.Context) error {
	r.mu.Lock()
	d := r.latency
	r.mu.Unlock()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
