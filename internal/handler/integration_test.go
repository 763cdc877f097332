package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/watchfav/internal/catalog"
	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/repository"
	"github.com/hitoshi/watchfav/internal/view"
)

// newIntegrationServer は実際のストアと画面を組み合わせたテストサーバーを起動する。
func newIntegrationServer(t *testing.T) (*httptest.Server, *repository.MemoryKVRepo) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cat, err := catalog.NewStaticProvider([]model.WatchItem{
		{ID: "1", WatchName: "Submariner", BrandName: "Rolex", Price: 9100},
		{ID: "2", WatchName: "Speedmaster", BrandName: "Omega", Price: 6300},
		{ID: "3", WatchName: "Navitimer", BrandName: "Breitling", Price: 8200},
	})
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewMemoryKVRepo()
	store := favorites.NewStore(repo, favorites.StoreOptions{Logger: logger, Timeout: time.Second})
	nav := view.NewNavigator(cat, store, logger, nil)

	srv := httptest.NewServer(NewRouter(&RouterDeps{
		Logger:  logger,
		Screens: NewNavigatorAdapter(nav),
		Health:  store,
	}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: failed to decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func favoriteCardIDs(cards []view.WatchCard) string {
	var ids []string
	for _, c := range cards {
		if c.IsFavorite {
			ids = append(ids, c.ID)
		}
	}
	return strings.Join(ids, ",")
}

// TestIntegration_FavoriteInDetailThenBackToHome は詳細でお気に入りにして戻るとホームに反映されることを検証する。
func TestIntegration_FavoriteInDetailThenBackToHome(t *testing.T) {
	srv, _ := newIntegrationServer(t)

	var home view.HomeScreen
	doJSON(t, srv, http.MethodGet, "/api/home", "", &home)
	if got := favoriteCardIDs(home.Watches); got != "" {
		t.Fatalf("initial favorites = %q", got)
	}

	var detail view.DetailScreen
	doJSON(t, srv, http.MethodGet, "/api/watches/2", "", &detail)
	if detail.IsFavorite {
		t.Fatal("watch 2 should not be favorite yet")
	}
	if status := doJSON(t, srv, http.MethodPost, "/api/watches/2/favorite", "", &detail); status != http.StatusOK {
		t.Fatalf("toggle status = %d", status)
	}
	if !detail.IsFavorite {
		t.Error("detail should reflect toggle immediately")
	}

	var back map[string]string
	doJSON(t, srv, http.MethodPost, "/api/back", "", &back)
	if back["screen"] != view.ScreenHome {
		t.Fatalf("back screen = %q", back["screen"])
	}

	doJSON(t, srv, http.MethodGet, "/api/home", "", &home)
	if got := favoriteCardIDs(home.Watches); got != "2" {
		t.Errorf("home favorites = %q, want %q", got, "2")
	}
}

// TestIntegration_BatchDelete はお気に入り{1,2,3}から{1,3}を一括削除すると{2}が残ることを検証する。
func TestIntegration_BatchDelete(t *testing.T) {
	srv, _ := newIntegrationServer(t)
	for _, id := range []string{"1", "2", "3"} {
		doJSON(t, srv, http.MethodPost, "/api/home/watches/"+id+"/favorite", "", nil)
	}

	var fav view.FavouritesScreen
	doJSON(t, srv, http.MethodGet, "/api/favourites", "", &fav)
	if len(fav.Favorites) != 3 {
		t.Fatalf("favorites = %d, want 3", len(fav.Favorites))
	}

	// 空選択での確定は422
	if status := doJSON(t, srv, http.MethodPost, "/api/favourites/selection/commit", `{"confirmed":true}`, nil); status != http.StatusUnprocessableEntity {
		t.Errorf("empty commit status = %d, want 422", status)
	}

	doJSON(t, srv, http.MethodPut, "/api/favourites/selection/1", "", nil)
	doJSON(t, srv, http.MethodPut, "/api/favourites/selection/3", "", &fav)
	if strings.Join(fav.Selected, ",") != "1,3" {
		t.Fatalf("selected = %v", fav.Selected)
	}

	var commit struct {
		Outcome    string                `json:"outcome"`
		Favourites view.FavouritesScreen `json:"favourites"`
	}
	doJSON(t, srv, http.MethodPost, "/api/favourites/selection/commit", `{"confirmed":false}`, &commit)
	if commit.Outcome != string(favorites.CommitCancelled) || len(commit.Favourites.Selected) != 2 {
		t.Fatalf("cancel = %+v", commit)
	}

	doJSON(t, srv, http.MethodPost, "/api/favourites/selection/commit", `{"confirmed":true}`, &commit)
	if commit.Outcome != string(favorites.CommitCommitted) {
		t.Fatalf("outcome = %q", commit.Outcome)
	}
	if len(commit.Favourites.Favorites) != 1 || commit.Favourites.Favorites[0].ID != "2" {
		t.Errorf("remaining = %+v, want [2]", commit.Favourites.Favorites)
	}
}

func TestIntegration_CorruptBlobIsReportedNotFatal(t *testing.T) {
	srv, repo := newIntegrationServer(t)
	repo.Seed(favorites.DefaultKey, "not-json")

	var fav view.FavouritesScreen
	status := doJSON(t, srv, http.MethodGet, "/api/favourites", "", &fav)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !fav.Empty || fav.Notice == nil || fav.Notice.Code != model.ErrCodeDeserializationFailed {
		t.Errorf("screen = %+v", fav)
	}

	// 明示的な削除操作で壊れた値を置き換える
	doJSON(t, srv, http.MethodDelete, "/api/favourites", "", &fav)
	if fav.Notice != nil {
		t.Errorf("notice after RemoveAll = %+v, want none", fav.Notice)
	}
	raw, _, _ := repo.Read(t.Context(), favorites.DefaultKey)
	if raw != "[]" {
		t.Errorf("stored = %q, want []", raw)
	}
}

// TestIntegration_DeleteOnCorruptBlobFails は保存値が壊れているとき
// 個別削除と一括削除が409で失敗し、保存値を書き換えないことを検証する。
func TestIntegration_DeleteOnCorruptBlobFails(t *testing.T) {
	srv, repo := newIntegrationServer(t)
	for _, id := range []string{"1", "2"} {
		doJSON(t, srv, http.MethodPost, "/api/home/watches/"+id+"/favorite", "", nil)
	}
	var fav view.FavouritesScreen
	doJSON(t, srv, http.MethodGet, "/api/favourites", "", &fav)
	doJSON(t, srv, http.MethodPut, "/api/favourites/selection/1", "", &fav)
	if strings.Join(fav.Selected, ",") != "1" {
		t.Fatalf("selected = %v", fav.Selected)
	}

	repo.Seed(favorites.DefaultKey, "garbage")

	var body map[string]string
	status := doJSON(t, srv, http.MethodPost, "/api/favourites/selection/commit", `{"confirmed":true}`, &body)
	if status != http.StatusConflict || body["code"] != model.ErrCodeDeserializationFailed {
		t.Errorf("commit = %d %v, want 409 DESERIALIZATION_FAILED", status, body)
	}

	body = nil
	status = doJSON(t, srv, http.MethodDelete, "/api/favourites/1", "", &body)
	if status != http.StatusConflict || body["code"] != model.ErrCodeDeserializationFailed {
		t.Errorf("remove = %d %v, want 409 DESERIALIZATION_FAILED", status, body)
	}

	raw, _, _ := repo.Read(t.Context(), favorites.DefaultKey)
	if raw != "garbage" {
		t.Errorf("stored = %q, want the corrupt value left untouched", raw)
	}
}

func TestIntegration_HealthReflectsStorage(t *testing.T) {
	srv, _ := newIntegrationServer(t)
	if status := doJSON(t, srv, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Errorf("health status = %d, want 200", status)
	}
}

func TestIntegration_UnknownWatch(t *testing.T) {
	srv, _ := newIntegrationServer(t)
	var body map[string]string
	if status := doJSON(t, srv, http.MethodGet, "/api/watches/999", "", &body); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if body["code"] != model.ErrCodeWatchNotFound {
		t.Errorf("code = %q", body["code"])
	}
}
