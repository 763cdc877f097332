package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/watchfav/internal/catalog"
	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/model"
)

// Navigator は画面スタックを管理する。
// スタックの底はホームまたはお気に入りのタブで、詳細はその上に1枚だけ積む。
// 最前面が入れ替わるたびに旧画面のBlurと新画面のFocusを呼ぶため、
// 詳細でお気に入りを変更して戻ると、再生成なしでタブ画面に反映される。
type Navigator struct {
	catalog catalog.Provider
	store   FavoritesStore
	logger  *slog.Logger

	home       *HomeView
	favourites *FavouritesView

	mu    sync.Mutex
	stack []Screen
}

// NewNavigator はホームを最前面としたNavigatorを生成する。
// ホームの初回フォーカスは最初の表示要求で行う。
func NewNavigator(provider catalog.Provider, store FavoritesStore, logger *slog.Logger, mc metrics.MetricsCollector) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Navigator{
		catalog:    provider,
		store:      store,
		logger:     logger,
		home:       NewHomeView(provider, store, logger),
		favourites: NewFavouritesView(store, logger, mc),
	}
	n.stack = []Screen{n.home}
	return n
}

// HomeView はホーム画面を返す。
func (n *Navigator) HomeView() *HomeView { return n.home }

// FavouritesView はお気に入り画面を返す。
func (n *Navigator) FavouritesView() *FavouritesView { return n.favourites }

// Current は最前面の画面名を返す。
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.topLocked().Name()
}

// ShowHome はホームタブへ切り替える。既に最前面の場合は読み直しのみ行う。
func (n *Navigator) ShowHome(ctx context.Context) *HomeView {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topLocked() == Screen(n.home) {
		n.home.Focus(ctx)
		return n.home
	}
	n.switchTabLocked(ctx, n.home)
	return n.home
}

// ShowFavourites はお気に入りタブへ切り替える。
// 既に最前面の場合は選択を維持したまま読み直す。
func (n *Navigator) ShowFavourites(ctx context.Context) *FavouritesView {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topLocked() == Screen(n.favourites) {
		n.favourites.Refresh(ctx)
		return n.favourites
	}
	n.switchTabLocked(ctx, n.favourites)
	return n.favourites
}

// ShowDetail は現在のタブの上にidの詳細画面を開く。
// 既に同じ時計の詳細が最前面の場合は読み直しのみ行う。
// 時計はカタログから探し、無ければお気に入りのスナップショットから探す。
func (n *Navigator) ShowDetail(ctx context.Context, id string) (*DetailView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if d, ok := n.topLocked().(*DetailView); ok && d.WatchID() == id {
		d.Focus(ctx)
		return d, nil
	}

	return n.pushDetailLocked(ctx, id)
}

// EnsureHome はホームが最前面でなければ切り替える。最前面の場合は読み直さない。
func (n *Navigator) EnsureHome(ctx context.Context) *HomeView {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topLocked() != Screen(n.home) {
		n.switchTabLocked(ctx, n.home)
	}
	return n.home
}

// EnsureFavourites はお気に入りが最前面でなければ切り替える。
// 最前面の場合は読み直さず、選択を維持する。
func (n *Navigator) EnsureFavourites(ctx context.Context) *FavouritesView {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topLocked() != Screen(n.favourites) {
		n.switchTabLocked(ctx, n.favourites)
	}
	return n.favourites
}

// EnsureDetail はidの詳細が最前面でなければ開く。
func (n *Navigator) EnsureDetail(ctx context.Context, id string) (*DetailView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if d, ok := n.topLocked().(*DetailView); ok && d.WatchID() == id {
		return d, nil
	}
	return n.pushDetailLocked(ctx, id)
}

func (n *Navigator) pushDetailLocked(ctx context.Context, id string) (*DetailView, error) {
	watch, err := n.lookupLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := n.topLocked()
	prev.Blur()
	if _, ok := prev.(*DetailView); ok {
		n.stack = n.stack[:len(n.stack)-1]
	}
	d := NewDetailView(watch, n.store, n.logger)
	n.stack = append(n.stack, d)
	d.Focus(ctx)
	n.logger.Debug("screen shown", slog.String("screen", ScreenDetail), slog.String("watch_id", id))
	return d, nil
}

// Detail は最前面の詳細画面を返す。詳細が開かれていない場合はfalse。
func (n *Navigator) Detail() (*DetailView, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	d, ok := n.topLocked().(*DetailView)
	return d, ok
}

// Back は最前面の画面を閉じ、新しい最前面の画面名を返す。
// タブだけが残っている場合は何もしない。
func (n *Navigator) Back(ctx context.Context) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.stack) <= 1 {
		return n.topLocked().Name()
	}
	n.topLocked().Blur()
	n.stack = n.stack[:len(n.stack)-1]
	top := n.topLocked()
	top.Focus(ctx)
	n.logger.Debug("screen shown", slog.String("screen", top.Name()))
	return top.Name()
}

func (n *Navigator) switchTabLocked(ctx context.Context, tab Screen) {
	n.topLocked().Blur()
	n.stack = []Screen{tab}
	tab.Focus(ctx)
	n.logger.Debug("screen shown", slog.String("screen", tab.Name()))
}

func (n *Navigator) topLocked() Screen {
	return n.stack[len(n.stack)-1]
}

func (n *Navigator) lookupLocked(ctx context.Context, id string) (model.WatchItem, error) {
	if w, ok := n.catalog.FindByID(id); ok {
		return w, nil
	}
	if w, ok := n.favourites.Find(id); ok {
		return w, nil
	}
	coll, err := n.store.Load(ctx)
	if err == nil {
		if i := coll.IndexOf(id); i >= 0 {
			return coll[i], nil
		}
	}
	return model.WatchItem{}, model.NewWatchNotFoundError(id)
}
