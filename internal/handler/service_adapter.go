package handler

import (
	"context"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/view"
)

// ScreenService はハンドラーが必要とする画面操作のインターフェース。
// 各メソッドは操作後の画面を返す。
type ScreenService interface {
	// Home はホームを最前面にして表示内容を返す。
	Home(ctx context.Context) view.HomeScreen
	// ToggleHomeFavorite はホーム一覧からお気に入りを切り替える。
	ToggleHomeFavorite(ctx context.Context, watchID string) (view.HomeScreen, error)
	// Detail は詳細画面を開いて表示内容を返す。
	Detail(ctx context.Context, watchID string) (view.DetailScreen, error)
	// ToggleDetailFavorite は詳細画面からお気に入りを切り替える。
	ToggleDetailFavorite(ctx context.Context, watchID string) (view.DetailScreen, error)
	// Back は最前面の画面を閉じ、新しい最前面の画面名を返す。
	Back(ctx context.Context) string
	// Favourites はお気に入りを最前面にして表示内容を返す。
	Favourites(ctx context.Context) view.FavouritesScreen
	// RemoveFavourite はお気に入りを1件削除する。
	RemoveFavourite(ctx context.Context, watchID string) (view.FavouritesScreen, error)
	// RemoveAllFavourites はお気に入りをすべて削除する。
	RemoveAllFavourites(ctx context.Context) (view.FavouritesScreen, error)
	// ToggleSelection は一括削除の選択を切り替える。
	ToggleSelection(ctx context.Context, watchID string) (view.FavouritesScreen, error)
	// CommitSelection は選択中のお気に入りを確認結果に従って削除する。
	CommitSelection(ctx context.Context, confirmed bool) (favorites.CommitOutcome, view.FavouritesScreen, error)
	// ClearSelection は選択を解除する。
	ClearSelection(ctx context.Context) view.FavouritesScreen
}

// NavigatorAdapter は view.Navigator を ScreenService に適合させるアダプタ。
// 表示系の要求は画面を読み直し、変更系の要求は最前面でない場合のみ画面を切り替える。
type NavigatorAdapter struct {
	nav *view.Navigator
}

// NewNavigatorAdapter はNavigatorAdapterを生成する。
func NewNavigatorAdapter(nav *view.Navigator) *NavigatorAdapter {
	return &NavigatorAdapter{nav: nav}
}

// Home はホームの表示内容を返す。
func (a *NavigatorAdapter) Home(ctx context.Context) view.HomeScreen {
	return a.nav.ShowHome(ctx).Render()
}

// ToggleHomeFavorite はホーム一覧からお気に入りを切り替える。
func (a *NavigatorAdapter) ToggleHomeFavorite(ctx context.Context, watchID string) (view.HomeScreen, error) {
	home := a.nav.EnsureHome(ctx)
	_, err := home.ToggleFavorite(ctx, watchID)
	return home.Render(), err
}

// Detail は詳細画面の表示内容を返す。
func (a *NavigatorAdapter) Detail(ctx context.Context, watchID string) (view.DetailScreen, error) {
	d, err := a.nav.ShowDetail(ctx, watchID)
	if err != nil {
		return view.DetailScreen{}, err
	}
	return d.Render(), nil
}

// ToggleDetailFavorite は詳細画面からお気に入りを切り替える。
func (a *NavigatorAdapter) ToggleDetailFavorite(ctx context.Context, watchID string) (view.DetailScreen, error) {
	d, err := a.nav.EnsureDetail(ctx, watchID)
	if err != nil {
		return view.DetailScreen{}, err
	}
	_, err = d.ToggleFavorite(ctx)
	return d.Render(), err
}

// Back は最前面の画面を閉じる。
func (a *NavigatorAdapter) Back(ctx context.Context) string {
	return a.nav.Back(ctx)
}

// Favourites はお気に入り画面の表示内容を返す。
func (a *NavigatorAdapter) Favourites(ctx context.Context) view.FavouritesScreen {
	return a.nav.ShowFavourites(ctx).Render()
}

// RemoveFavourite はお気に入りを1件削除する。
func (a *NavigatorAdapter) RemoveFavourite(ctx context.Context, watchID string) (view.FavouritesScreen, error) {
	fav := a.nav.EnsureFavourites(ctx)
	err := fav.RemoveOne(ctx, watchID)
	return fav.Render(), err
}

// RemoveAllFavourites はお気に入りをすべて削除する。
func (a *NavigatorAdapter) RemoveAllFavourites(ctx context.Context) (view.FavouritesScreen, error) {
	fav := a.nav.EnsureFavourites(ctx)
	err := fav.RemoveAll(ctx)
	return fav.Render(), err
}

// ToggleSelection は一括削除の選択を切り替える。
func (a *NavigatorAdapter) ToggleSelection(ctx context.Context, watchID string) (view.FavouritesScreen, error) {
	fav := a.nav.EnsureFavourites(ctx)
	_, err := fav.ToggleSelection(watchID)
	return fav.Render(), err
}

// CommitSelection は選択中のお気に入りを確認結果に従って削除する。
func (a *NavigatorAdapter) CommitSelection(ctx context.Context, confirmed bool) (favorites.CommitOutcome, view.FavouritesScreen, error) {
	fav := a.nav.EnsureFavourites(ctx)
	outcome, err := fav.CommitDeletion(ctx, favorites.StaticGate(confirmed))
	return outcome, fav.Render(), err
}

// ClearSelection は選択を解除する。
func (a *NavigatorAdapter) ClearSelection(ctx context.Context) view.FavouritesScreen {
	fav := a.nav.EnsureFavourites(ctx)
	fav.ClearSelection()
	return fav.Render()
}

// --- compile-time interface checks ---

var _ ScreenService = (*NavigatorAdapter)(nil)
