package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/watchfav/internal/middleware"
	"github.com/hitoshi/watchfav/internal/model"
)

// Pinger は永続化媒体の疎通を確認する。
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthResponse はヘルスチェックの結果。
type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// NewHealthHandler は永続化媒体に到達できれば200、できなければ503を返すハンドラーを生成する。
// GET /health
func NewHealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			middleware.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "unavailable",
				Storage: model.CodeOf(err),
			})
			return
		}
		middleware.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: "ok"})
	}
}
