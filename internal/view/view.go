// Package view はホーム・詳細・お気に入りの各画面が保持する表示状態を管理する。
//
// ストアから画面への通知は行わない。各画面はフォーカスを得るたびに
// ストアから読み直し、自身の変更操作ではその戻り値で表示状態を更新する。
// 画面同士はお気に入りのメモリ上の状態を共有しない。
package view

import (
	"context"
	"errors"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/model"
)

// 画面名。
const (
	ScreenHome       = "home"
	ScreenDetail     = "detail"
	ScreenFavourites = "favourites"
)

// FavoritesStore は画面が使うお気に入りストアの操作。
type FavoritesStore interface {
	Load(ctx context.Context) (model.FavoritesCollection, error)
	Toggle(ctx context.Context, item model.WatchItem) (model.FavoritesCollection, error)
	RemoveOne(ctx context.Context, id string) (model.FavoritesCollection, error)
	RemoveAll(ctx context.Context) (model.FavoritesCollection, error)
	favorites.BatchRemover
}

var _ FavoritesStore = (*favorites.Store)(nil)

// Screen はナビゲーターが切り替える画面。
type Screen interface {
	Name() string
	// Focus は画面が最前面になったときに呼ばれ、お気に入りを読み直す。
	Focus(ctx context.Context)
	// Blur は画面が最前面でなくなったときに呼ばれる。
	Blur()
}

// Notice は画面に表示する非ブロッキングな通知。
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// noticeFrom はエラーを画面通知に変換する。
func noticeFrom(err error) *Notice {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return &Notice{Code: apiErr.Code, Message: apiErr.Message, Action: apiErr.Action}
	}
	fallback := model.NewInternalError(err)
	return &Notice{Code: fallback.Code, Message: fallback.Message, Action: fallback.Action}
}

// WatchCard は一覧画面に並べる時計の要約。
type WatchCard struct {
	ID          string  `json:"id"`
	WatchName   string  `json:"watchName"`
	BrandName   string  `json:"brandName"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	IsAutomatic *bool   `json:"isAutomatic,omitempty"`
	IsFavorite  bool    `json:"isFavorite"`
	Selected    bool    `json:"selected,omitempty"`
}

func toCard(w model.WatchItem, favorite bool) WatchCard {
	return WatchCard{
		ID:          w.ID,
		WatchName:   w.WatchName,
		BrandName:   w.BrandName,
		Price:       w.Price,
		Image:       w.Image,
		IsAutomatic: w.IsAutomatic,
		IsFavorite:  favorite,
	}
}

func idSet(coll model.FavoritesCollection) map[string]struct{} {
	set := make(map[string]struct{}, len(coll))
	for _, it := range coll {
		set[it.ID] = struct{}{}
	}
	return set
}
