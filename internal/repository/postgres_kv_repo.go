package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKVRepo はPostgreSQLのkv_storeテーブルを使用する媒体。
type PostgresKVRepo struct {
	db *sql.DB
}

// NewPostgresKVRepo はPostgresKVRepoを生成する。
func NewPostgresKVRepo(db *sql.DB) *PostgresKVRepo {
	return &PostgresKVRepo{db: db}
}

// Read はkeyの値を取得する。
func (r *PostgresKVRepo) Read(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("値の取得に失敗しました: %w", err)
	}
	return value, true, nil
}

// Write はkeyの値をUPSERTする。
func (r *PostgresKVRepo) Write(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("値の保存に失敗しました: %w", err)
	}
	return nil
}

// Delete はkeyを削除する。
func (r *PostgresKVRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("値の削除に失敗しました: %w", err)
	}
	return nil
}

// Ping はデータベース接続を確認する。
func (r *PostgresKVRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
