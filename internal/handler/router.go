package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 画面操作
	Screens ScreenService

	// 運用
	Health         Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	screenHandler := NewScreenHandler(deps.Screens)
	favHandler := NewFavouritesHandler(deps.Screens)

	// --- 運用ルート ---
	if deps.Health != nil {
		r.Get("/health", NewHealthHandler(deps.Health))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 画面ルート ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// ホーム
		r.Route("/api/home", func(r chi.Router) {
			r.Get("/", screenHandler.GetHome)
			r.Post("/watches/{id}/favorite", screenHandler.ToggleHomeFavorite)
		})

		// 詳細
		r.Route("/api/watches/{id}", func(r chi.Router) {
			r.Get("/", screenHandler.GetWatch)
			r.Post("/favorite", screenHandler.ToggleWatchFavorite)
		})

		r.Post("/api/back", screenHandler.Back)

		// お気に入り
		r.Route("/api/favourites", func(r chi.Router) {
			r.Get("/", favHandler.ListFavourites)
			r.Delete("/", favHandler.RemoveAllFavourites)

			// 一括削除の選択
			r.Route("/selection", func(r chi.Router) {
				r.Delete("/", favHandler.ClearSelection)
				r.Post("/commit", favHandler.CommitSelection)
				r.Put("/{id}", favHandler.ToggleSelection)
			})

			r.Delete("/{id}", favHandler.RemoveFavourite)
		})
	})

	return r
}
