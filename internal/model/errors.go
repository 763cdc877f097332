// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: storage, validation, selection, catalog, system
	Action   string // ユーザー向け対処方法
	Cause    error  // 原因となった下位エラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, model.ErrStorageUnavailable) のように判定できる。
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	ErrCodeDeserializationFailed = "DESERIALIZATION_FAILED"
	ErrCodeNoSelection           = "NO_SELECTION"
	ErrCodeWatchNotFound         = "WATCH_NOT_FOUND"
	ErrCodeInvalidWatch          = "INVALID_WATCH"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeCatalogUnavailable    = "CATALOG_UNAVAILABLE"
	ErrCodeConfirmationFailed    = "CONFIRMATION_FAILED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// errors.Is で判定するためのセンチネル。
var (
	ErrStorageUnavailable    = &APIError{Code: ErrCodeStorageUnavailable}
	ErrDeserializationFailed = &APIError{Code: ErrCodeDeserializationFailed}
	ErrNoSelection           = &APIError{Code: ErrCodeNoSelection}
	ErrWatchNotFound         = &APIError{Code: ErrCodeWatchNotFound}
	ErrInvalidWatch          = &APIError{Code: ErrCodeInvalidWatch}
	ErrInvalidRequest        = &APIError{Code: ErrCodeInvalidRequest}
	ErrCatalogUnavailable    = &APIError{Code: ErrCodeCatalogUnavailable}
	ErrConfirmationFailed    = &APIError{Code: ErrCodeConfirmationFailed}
)

// CodeOf はerrがAPIErrorであればそのコードを返す。それ以外は空文字。
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// NewStorageUnavailableError は永続化媒体の読み書き失敗エラーを生成する。
func NewStorageUnavailableError(op string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  fmt.Sprintf("お気に入りの保存領域にアクセスできません (%s)", op),
		Category: "storage",
		Action:   "変更は保存されていません。しばらく待ってから再度お試しください。",
		Cause:    cause,
	}
}

// NewDeserializationFailedError は保存済みデータの解析失敗エラーを生成する。
func NewDeserializationFailedError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeDeserializationFailed,
		Message:  "保存済みのお気に入りデータを読み込めませんでした。",
		Category: "storage",
		Action:   "お気に入りは空として表示されます。追加または全削除を行うとデータが作り直されます。",
		Cause:    cause,
	}
}

// NewNoSelectionError は一括削除で何も選択されていない場合のエラーを生成する。
func NewNoSelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSelection,
		Message:  "削除する時計が選択されていません。",
		Category: "selection",
		Action:   "削除したい時計を1件以上選択してください。",
	}
}

// NewWatchNotFoundError は時計がカタログに存在しない場合のエラーを生成する。
func NewWatchNotFoundError(watchID string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchNotFound,
		Message:  fmt.Sprintf("指定された時計が見つかりません: %s", watchID),
		Category: "catalog",
		Action:   "時計IDを確認してください。",
	}
}

// NewInvalidWatchError は時計データが不正な場合のエラーを生成する。
func NewInvalidWatchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWatch,
		Message:  fmt.Sprintf("時計データが不正です: %s", reason),
		Category: "validation",
		Action:   "カタログデータを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewCatalogUnavailableError はカタログの読み込み失敗エラーを生成する。
func NewCatalogUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeCatalogUnavailable,
		Message:  "カタログを読み込めませんでした。",
		Category: "catalog",
		Action:   "CATALOG_SOURCE の設定を確認してください。",
		Cause:    cause,
	}
}

// NewConfirmationFailedError は一括削除の確認処理そのものが失敗したエラーを生成する。
// 選択と保存値は変更されていない。
func NewConfirmationFailedError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationFailed,
		Message:  "削除の確認を完了できませんでした。",
		Category: "selection",
		Action:   "選択は維持されています。もう一度削除を実行してください。",
		Cause:    cause,
	}
}

// NewInternalError は分類できない内部エラーを生成する。
func NewInternalError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Cause:    cause,
	}
}
