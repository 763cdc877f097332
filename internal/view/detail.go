package view

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/hitoshi/watchfav/internal/model"
)

// DetailScreen は詳細画面の表示内容。
type DetailScreen struct {
	Watch         model.WatchItem `json:"watch"`
	AverageRating float64         `json:"averageRating"`
	IsFavorite    bool            `json:"isFavorite"`
	Notice        *Notice         `json:"notice,omitempty"`
}

// DetailView は1つの時計の詳細とお気に入りボタンを表示する画面。
type DetailView struct {
	watch  model.WatchItem
	store  FavoritesStore
	logger *slog.Logger

	mu         sync.Mutex
	isFavorite bool
	notice     *Notice
}

// NewDetailView はwatchを表示するDetailViewを生成する。
func NewDetailView(watch model.WatchItem, store FavoritesStore, logger *slog.Logger) *DetailView {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailView{watch: watch.Snapshot(), store: store, logger: logger}
}

// Name は画面名を返す。
func (v *DetailView) Name() string { return ScreenDetail }

// WatchID は表示中の時計のIDを返す。
func (v *DetailView) WatchID() string { return v.watch.ID }

// Focus はお気に入りを読み直してボタンの状態を更新する。
func (v *DetailView) Focus(ctx context.Context) {
	coll, err := v.store.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.isFavorite = coll.Contains(v.watch.ID)
	v.notice = nil
	if err != nil {
		v.logger.Warn("detail view could not load favorites",
			slog.String("watch_id", v.watch.ID),
			slog.String("error", err.Error()),
		)
		v.notice = noticeFrom(err)
	}
}

// Blur は何もしない。
func (v *DetailView) Blur() {}

// ToggleFavorite は表示中の時計をお気に入りに追加または削除し、操作後の状態を返す。
func (v *DetailView) ToggleFavorite(ctx context.Context) (bool, error) {
	coll, err := v.store.Toggle(ctx, v.watch)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.notice = noticeFrom(err)
		return v.isFavorite, err
	}
	v.isFavorite = coll.Contains(v.watch.ID)
	v.notice = nil
	return v.isFavorite, nil
}

// Render は詳細画面の表示内容を返す。
func (v *DetailView) Render() DetailScreen {
	v.mu.Lock()
	defer v.mu.Unlock()
	return DetailScreen{
		Watch:         v.watch.Snapshot(),
		AverageRating: averageRating(v.watch.Feedbacks),
		IsFavorite:    v.isFavorite,
		Notice:        v.notice,
	}
}

// averageRating はレビューの平均評価を小数第1位で丸めて返す。レビューが無い場合は0。
func averageRating(fbs []model.Feedback) float64 {
	if len(fbs) == 0 {
		return 0
	}
	sum := 0
	for _, fb := range fbs {
		sum += fb.Rating
	}
	return math.Round(float64(sum)/float64(len(fbs))*10) / 10
}
