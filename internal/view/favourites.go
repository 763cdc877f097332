package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/model"
)

// FavouritesScreen はお気に入り画面の表示内容。
type FavouritesScreen struct {
	Favorites []WatchCard `json:"favorites"`
	Selected  []string    `json:"selected"`
	Empty     bool        `json:"empty"`
	Notice    *Notice     `json:"notice,omitempty"`
}

// FavouritesView はお気に入り一覧と一括削除用の選択を扱う画面。
// 選択はフォーカスごとに新しく作り、画面を離れると破棄する。
type FavouritesView struct {
	store   FavoritesStore
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu        sync.Mutex
	favorites model.FavoritesCollection
	selection *favorites.Selection
	notice    *Notice
}

// NewFavouritesView はFavouritesViewを生成する。
func NewFavouritesView(store FavoritesStore, logger *slog.Logger, mc metrics.MetricsCollector) *FavouritesView {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &FavouritesView{
		store:     store,
		logger:    logger,
		metrics:   mc,
		favorites: model.FavoritesCollection{},
	}
}

// Name は画面名を返す。
func (v *FavouritesView) Name() string { return ScreenFavourites }

// Focus はお気に入りを読み直し、新しい選択セッションを開始する。
func (v *FavouritesView) Focus(ctx context.Context) {
	v.reload(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection = favorites.NewSelection(v.store, v.logger, v.metrics)
}

// Refresh は選択を維持したままお気に入りを読み直す。
// 既に存在しないIDは選択から外す。
func (v *FavouritesView) Refresh(ctx context.Context) {
	v.reload(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selection != nil {
		v.selection.Retain(v.favorites.IDs())
	}
}

// Blur は選択セッションを破棄する。
func (v *FavouritesView) Blur() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection = nil
}

func (v *FavouritesView) reload(ctx context.Context) {
	coll, err := v.store.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.favorites = coll
	v.notice = nil
	if err != nil {
		v.logger.Warn("favourites view could not load favorites", slog.String("error", err.Error()))
		v.notice = noticeFrom(err)
	}
}

// Find は表示中のお気に入りからidのスナップショットを返す。
func (v *FavouritesView) Find(id string) (model.WatchItem, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.favorites.IndexOf(id); i >= 0 {
		return v.favorites[i].Snapshot(), true
	}
	return model.WatchItem{}, false
}

// RemoveOne はidをお気に入りから削除する。
func (v *FavouritesView) RemoveOne(ctx context.Context, id string) error {
	coll, err := v.store.RemoveOne(ctx, id)
	v.apply(coll, err)
	return err
}

// RemoveAll はお気に入りをすべて削除する。
func (v *FavouritesView) RemoveAll(ctx context.Context) error {
	coll, err := v.store.RemoveAll(ctx)
	v.apply(coll, err)
	return err
}

// ToggleSelection はidの選択状態を反転する。お気に入りに無いidはWATCH_NOT_FOUNDになる。
func (v *FavouritesView) ToggleSelection(id string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.favorites.Contains(id) {
		return false, model.NewWatchNotFoundError(id)
	}
	return v.selectionLocked().ToggleSelection(id), nil
}

// ClearSelection は選択をすべて解除する。
func (v *FavouritesView) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selection != nil {
		v.selection.Clear()
	}
}

// CommitDeletion は選択中のお気に入りをgateの確認後に一括削除する。
func (v *FavouritesView) CommitDeletion(ctx context.Context, gate favorites.ConfirmGate) (favorites.CommitOutcome, error) {
	v.mu.Lock()
	sel := v.selectionLocked()
	v.mu.Unlock()

	coll, outcome, err := sel.CommitDeletion(ctx, gate)
	if err != nil {
		if errors.Is(err, model.ErrNoSelection) {
			return outcome, err
		}
		// 削除は行われていないため、一覧と選択はそのまま残して通知だけ出す
		v.mu.Lock()
		v.notice = noticeFrom(err)
		v.mu.Unlock()
		return outcome, err
	}
	if outcome == favorites.CommitCommitted {
		v.apply(coll, nil)
	}
	return outcome, nil
}

// apply は変更操作の結果を表示状態に反映する。
// 媒体障害の場合は直前の表示を維持し、保存値が壊れていた場合は空として表示する。
func (v *FavouritesView) apply(coll model.FavoritesCollection, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.notice = noticeFrom(err)
		if !errors.Is(err, model.ErrDeserializationFailed) {
			return
		}
	} else {
		v.notice = nil
	}
	v.favorites = coll.Clone()
	if v.selection != nil {
		v.selection.Retain(v.favorites.IDs())
	}
}

func (v *FavouritesView) selectionLocked() *favorites.Selection {
	if v.selection == nil {
		v.selection = favorites.NewSelection(v.store, v.logger, v.metrics)
	}
	return v.selection
}

// Render はお気に入り画面の表示内容を返す。
func (v *FavouritesView) Render() FavouritesScreen {
	v.mu.Lock()
	defer v.mu.Unlock()

	selected := []string{}
	if v.selection != nil {
		selected = v.selection.Selected()
	}
	marked := make(map[string]bool, len(selected))
	for _, id := range selected {
		marked[id] = true
	}

	cards := make([]WatchCard, len(v.favorites))
	for i, w := range v.favorites {
		cards[i] = toCard(w, true)
		cards[i].Selected = marked[w.ID]
	}
	return FavouritesScreen{
		Favorites: cards,
		Selected:  selected,
		Empty:     len(cards) == 0,
		Notice:    v.notice,
	}
}
