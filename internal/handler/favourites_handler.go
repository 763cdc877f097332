package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/middleware"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/view"
)

// maxCommitBodyBytes は一括削除リクエストのボディ上限。
const maxCommitBodyBytes = 1 << 10

// FavouritesHandler はお気に入り画面のHTTPハンドラー。
type FavouritesHandler struct {
	service ScreenService
}

// NewFavouritesHandler はFavouritesHandlerを生成する。
func NewFavouritesHandler(service ScreenService) *FavouritesHandler {
	return &FavouritesHandler{service: service}
}

// commitRequest は一括削除の確認結果。
type commitRequest struct {
	Confirmed *bool `json:"confirmed"`
}

// commitResponse は一括削除の結果と操作後の画面。
type commitResponse struct {
	Outcome    favorites.CommitOutcome `json:"outcome"`
	Favourites view.FavouritesScreen   `json:"favourites"`
}

// ListFavourites はお気に入り画面を表示する。
// GET /api/favourites
func (h *FavouritesHandler) ListFavourites(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.service.Favourites(r.Context()))
}

// RemoveFavourite はお気に入りを1件削除する。
// DELETE /api/favourites/{id}
func (h *FavouritesHandler) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := watchIDParam(w, r)
	if !ok {
		return
	}
	screen, err := h.service.RemoveFavourite(r.Context(), id)
	writeMutation(w, screen, err)
}

// RemoveAllFavourites はお気に入りをすべて削除する。
// DELETE /api/favourites
func (h *FavouritesHandler) RemoveAllFavourites(w http.ResponseWriter, r *http.Request) {
	screen, err := h.service.RemoveAllFavourites(r.Context())
	writeScreen(w, screen, err)
}

// ToggleSelection は一括削除の選択を切り替える。
// PUT /api/favourites/selection/{id}
func (h *FavouritesHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := watchIDParam(w, r)
	if !ok {
		return
	}
	screen, err := h.service.ToggleSelection(r.Context(), id)
	writeScreen(w, screen, err)
}

// CommitSelection は選択中のお気に入りを一括削除する。
// ボディの confirmed がfalseの場合は削除せず選択を維持する。
// POST /api/favourites/selection/commit
func (h *FavouritesHandler) CommitSelection(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommitBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.Confirmed == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(`body must be {"confirmed": bool}`))
		return
	}

	outcome, screen, err := h.service.CommitSelection(r.Context(), *req.Confirmed)
	writeMutation(w, commitResponse{Outcome: outcome, Favourites: screen}, err)
}

// ClearSelection は選択を解除する。
// DELETE /api/favourites/selection
func (h *FavouritesHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.service.ClearSelection(r.Context()))
}
