package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/watchfav/internal/catalog"
	"github.com/hitoshi/watchfav/internal/model"
)

// HomeScreen はホーム画面の表示内容。
type HomeScreen struct {
	Watches []WatchCard `json:"watches"`
	Notice  *Notice     `json:"notice,omitempty"`
}

// HomeView はカタログ一覧とお気に入りバッジを表示する画面。
type HomeView struct {
	catalog catalog.Provider
	store   FavoritesStore
	logger  *slog.Logger

	mu        sync.Mutex
	favorites map[string]struct{}
	notice    *Notice
}

// NewHomeView はHomeViewを生成する。
func NewHomeView(provider catalog.Provider, store FavoritesStore, logger *slog.Logger) *HomeView {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomeView{
		catalog:   provider,
		store:     store,
		logger:    logger,
		favorites: map[string]struct{}{},
	}
}

// Name は画面名を返す。
func (v *HomeView) Name() string { return ScreenHome }

// Focus はお気に入りを読み直してバッジを更新する。
// 読み込みに失敗した場合はお気に入りなしとして表示し、通知を残す。
func (v *HomeView) Focus(ctx context.Context) {
	coll, err := v.store.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.favorites = idSet(coll)
	v.notice = nil
	if err != nil {
		v.logger.Warn("home view could not load favorites", slog.String("error", err.Error()))
		v.notice = noticeFrom(err)
	}
}

// Blur は何もしない。
func (v *HomeView) Blur() {}

// ToggleFavorite はカタログのidの時計をお気に入りに追加または削除する。
// バッジはストアの戻り値で即座に更新する。
func (v *HomeView) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	item, ok := v.catalog.FindByID(id)
	if !ok {
		return false, model.NewWatchNotFoundError(id)
	}

	coll, err := v.store.Toggle(ctx, item)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.notice = noticeFrom(err)
		return v.hasLocked(id), err
	}
	v.favorites = idSet(coll)
	v.notice = nil
	return coll.Contains(id), nil
}

// IsFavorite はidのバッジ状態を返す。
func (v *HomeView) IsFavorite(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasLocked(id)
}

// Render はカタログ順の一覧を返す。
func (v *HomeView) Render() HomeScreen {
	watches := v.catalog.GetAll()

	v.mu.Lock()
	defer v.mu.Unlock()
	cards := make([]WatchCard, len(watches))
	for i, w := range watches {
		cards[i] = toCard(w, v.hasLocked(w.ID))
	}
	return HomeScreen{Watches: cards, Notice: v.notice}
}

func (v *HomeView) hasLocked(id string) bool {
	_, ok := v.favorites[id]
	return ok
}
