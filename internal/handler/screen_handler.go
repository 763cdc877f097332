package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/watchfav/internal/middleware"
	"github.com/hitoshi/watchfav/internal/model"
)

// ScreenHandler はホーム・詳細画面と画面遷移のHTTPハンドラー。
type ScreenHandler struct {
	service ScreenService
}

// NewScreenHandler はScreenHandlerを生成する。
func NewScreenHandler(service ScreenService) *ScreenHandler {
	return &ScreenHandler{service: service}
}

// backResponse は画面を閉じた後の最前面の画面名。
type backResponse struct {
	Screen string `json:"screen"`
}

// GetHome はホーム画面を表示する。
// GET /api/home
func (h *ScreenHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.service.Home(r.Context()))
}

// ToggleHomeFavorite はホーム一覧からお気に入りを切り替える。
// POST /api/home/watches/{id}/favorite
func (h *ScreenHandler) ToggleHomeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := watchIDParam(w, r)
	if !ok {
		return
	}
	screen, err := h.service.ToggleHomeFavorite(r.Context(), id)
	writeScreen(w, screen, err)
}

// GetWatch は時計の詳細画面を開く。
// GET /api/watches/{id}
func (h *ScreenHandler) GetWatch(w http.ResponseWriter, r *http.Request) {
	id, ok := watchIDParam(w, r)
	if !ok {
		return
	}
	screen, err := h.service.Detail(r.Context(), id)
	writeScreen(w, screen, err)
}

// ToggleWatchFavorite は詳細画面からお気に入りを切り替える。
// POST /api/watches/{id}/favorite
func (h *ScreenHandler) ToggleWatchFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := watchIDParam(w, r)
	if !ok {
		return
	}
	screen, err := h.service.ToggleDetailFavorite(r.Context(), id)
	writeScreen(w, screen, err)
}

// Back は最前面の画面を閉じる。
// POST /api/back
func (h *ScreenHandler) Back(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, backResponse{Screen: h.service.Back(r.Context())})
}

// watchIDParam はURLパラメータの時計IDを取り出す。空の場合は400を書き込みfalseを返す。
func watchIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("watch id is empty"))
		return "", false
	}
	return id, true
}
