package handler

import (
	"context"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/view"
)

// mockScreenService はScreenServiceのモック実装。
type mockScreenService struct {
	homeFn                 func(ctx context.Context) view.HomeScreen
	toggleHomeFavoriteFn   func(ctx context.Context, watchID string) (view.HomeScreen, error)
	detailFn               func(ctx context.Context, watchID string) (view.DetailScreen, error)
	toggleDetailFavoriteFn func(ctx context.Context, watchID string) (view.DetailScreen, error)
	backFn                 func(ctx context.Context) string
	favouritesFn           func(ctx context.Context) view.FavouritesScreen
	removeFavouriteFn      func(ctx context.Context, watchID string) (view.FavouritesScreen, error)
	removeAllFavouritesFn  func(ctx context.Context) (view.FavouritesScreen, error)
	toggleSelectionFn      func(ctx context.Context, watchID string) (view.FavouritesScreen, error)
	commitSelectionFn      func(ctx context.Context, confirmed bool) (favorites.CommitOutcome, view.FavouritesScreen, error)
	clearSelectionFn       func(ctx context.Context) view.FavouritesScreen
}

func (m *mockScreenService) Home(ctx context.Context) view.HomeScreen {
	if m.homeFn != nil {
		return m.homeFn(ctx)
	}
	return view.HomeScreen{}
}

func (m *mockScreenService) ToggleHomeFavorite(ctx context.Context, watchID string) (view.HomeScreen, error) {
	if m.toggleHomeFavoriteFn != nil {
		return m.toggleHomeFavoriteFn(ctx, watchID)
	}
	return view.HomeScreen{}, nil
}

func (m *mockScreenService) Detail(ctx context.Context, watchID string) (view.DetailScreen, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, watchID)
	}
	return view.DetailScreen{}, nil
}

func (m *mockScreenService) ToggleDetailFavorite(ctx context.Context, watchID string) (view.DetailScreen, error) {
	if m.toggleDetailFavoriteFn != nil {
		return m.toggleDetailFavoriteFn(ctx, watchID)
	}
	return view.DetailScreen{}, nil
}

func (m *mockScreenService) Back(ctx context.Context) string {
	if m.backFn != nil {
		return m.backFn(ctx)
	}
	return view.ScreenHome
}

func (m *mockScreenService) Favourites(ctx context.Context) view.FavouritesScreen {
	if m.favouritesFn != nil {
		return m.favouritesFn(ctx)
	}
	return view.FavouritesScreen{}
}

func (m *mockScreenService) RemoveFavourite(ctx context.Context, watchID string) (view.FavouritesScreen, error) {
	if m.removeFavouriteFn != nil {
		return m.removeFavouriteFn(ctx, watchID)
	}
	return view.FavouritesScreen{}, nil
}

func (m *mockScreenService) RemoveAllFavourites(ctx context.Context) (view.FavouritesScreen, error) {
	if m.removeAllFavouritesFn != nil {
		return m.removeAllFavouritesFn(ctx)
	}
	return view.FavouritesScreen{}, nil
}

func (m *mockScreenService) ToggleSelection(ctx context.Context, watchID string) (view.FavouritesScreen, error) {
	if m.toggleSelectionFn != nil {
		return m.toggleSelectionFn(ctx, watchID)
	}
	return view.FavouritesScreen{}, nil
}

func (m *mockScreenService) CommitSelection(ctx context.Context, confirmed bool) (favorites.CommitOutcome, view.FavouritesScreen, error) {
	if m.commitSelectionFn != nil {
		return m.commitSelectionFn(ctx, confirmed)
	}
	return favorites.CommitCommitted, view.FavouritesScreen{}, nil
}

func (m *mockScreenService) ClearSelection(ctx context.Context) view.FavouritesScreen {
	if m.clearSelectionFn != nil {
		return m.clearSelectionFn(ctx)
	}
	return view.FavouritesScreen{}
}

var _ ScreenService = (*mockScreenService)(nil)

// mockPinger はPingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }
