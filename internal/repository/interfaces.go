// Package repository はお気に入りデータを保存する永続化媒体を提供する。
package repository

import (
	"context"
	"errors"
)

// ErrInvalidKey はキーが媒体で扱えない形式の場合に返される。
var ErrInvalidKey = errors.New("invalid storage key")

// KeyValueRepository は単一キーに文字列を保存する永続化媒体のインターフェース。
// 実装はメモリ、ファイル、PostgreSQL、Redisの4種類。
type KeyValueRepository interface {
	// Read はkeyの値を返す。キーが存在しない場合はfound=false、err=nilを返す。
	Read(ctx context.Context, key string) (value string, found bool, err error)

	// Write はkeyに値を保存する。既存の値は置き換えられる。
	Write(ctx context.Context, key, value string) error

	// Delete はkeyを削除する。存在しないキーの削除は成功扱い。
	Delete(ctx context.Context, key string) error

	// Ping は媒体が利用可能かを確認する。
	Ping(ctx context.Context) error
}
