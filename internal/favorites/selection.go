package favorites

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/model"
)

// CommitOutcome は一括削除の確定結果を表す。
type CommitOutcome string

const (
	// CommitCommitted は確認され、削除が永続化されたことを表す。
	CommitCommitted CommitOutcome = "committed"
	// CommitCancelled は確認でキャンセルされ、選択が維持されたことを表す。
	CommitCancelled CommitOutcome = "cancelled"
)

// ConfirmGate は一括削除の実行可否を利用者に問い合わせる。
type ConfirmGate interface {
	Confirm(ctx context.Context, ids []string) (bool, error)
}

// StaticGate は常に同じ回答を返すConfirmGate。
type StaticGate bool

// Confirm はStaticGateの値を返す。
func (g StaticGate) Confirm(context.Context, []string) (bool, error) {
	return bool(g), nil
}

// GateFunc は関数をConfirmGateとして使うためのアダプター。
type GateFunc func(ctx context.Context, ids []string) (bool, error)

// Confirm はfを呼び出す。
func (f GateFunc) Confirm(ctx context.Context, ids []string) (bool, error) {
	return f(ctx, ids)
}

// BatchRemover は選択セッションが削除に使うストア操作。
type BatchRemover interface {
	RemoveMany(ctx context.Context, ids []string) (model.FavoritesCollection, error)
}

// Selection はお気に入り画面で一括削除用に選ばれたIDの一時的な集合。
// 永続化せず、画面がフォーカスを得たときに生成し、離れたときに破棄する。
type Selection struct {
	id        string
	createdAt time.Time
	remover   BatchRemover
	logger    *slog.Logger
	metrics   metrics.MetricsCollector

	mu       sync.Mutex
	selected map[string]bool
}

// NewSelection は空の選択セッションを生成する。
func NewSelection(remover BatchRemover, logger *slog.Logger, mc metrics.MetricsCollector) *Selection {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Selection{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		remover:   remover,
		logger:    logger,
		metrics:   mc,
		selected:  make(map[string]bool),
	}
}

// ID はセッションIDを返す。
func (s *Selection) ID() string {
	return s.id
}

// CreatedAt はセッションの生成時刻を返す。
func (s *Selection) CreatedAt() time.Time {
	return s.createdAt
}

// ToggleSelection はidの選択状態を反転し、反転後の状態を返す。
func (s *Selection) ToggleSelection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected[id] {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = true
	return true
}

// IsSelected はidが選択されているかを返す。
func (s *Selection) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[id]
}

// Selected は選択中のIDを昇順で返す。
func (s *Selection) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

// Len は選択件数を返す。
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// Clear は選択をすべて解除する。
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selected)
}

// Retain はidsに含まれないIDを選択から外す。
// お気に入りから既に消えたIDが選択に残らないようにするために使う。
func (s *Selection) Retain(ids []string) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.selected {
		if _, ok := keep[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// CommitDeletion は選択中のIDを一括削除する。
// 選択が空の場合は確認を行わずNO_SELECTIONを返す。
// 確認でキャンセルされた場合は選択を維持したままCommitCancelledを返す。
// 削除が永続化された場合のみ選択を空にする。
func (s *Selection) CommitDeletion(ctx context.Context, gate ConfirmGate) (model.FavoritesCollection, CommitOutcome, error) {
	// 確認中は選択を変更させない
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.selectedLocked()
	if len(ids) == 0 {
		s.metrics.RecordSelectionCommit(metrics.OutcomeNoSelection, 0)
		return nil, "", model.NewNoSelectionError()
	}

	ok, err := gate.Confirm(ctx, ids)
	if err != nil {
		s.metrics.RecordSelectionCommit(metrics.OutcomeConfirmationFailed, len(ids))
		s.logger.Warn("selection confirmation failed",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		return nil, "", model.NewConfirmationFailedError(err)
	}
	if !ok {
		s.metrics.RecordSelectionCommit(metrics.OutcomeCancelled, len(ids))
		s.logger.Info("selection commit cancelled",
			slog.String("session_id", s.id),
			slog.Int("selected", len(ids)),
		)
		return nil, CommitCancelled, nil
	}

	coll, err := s.remover.RemoveMany(ctx, ids)
	if err != nil {
		s.metrics.RecordSelectionCommit(outcomeOf(err), len(ids))
		return coll, "", err
	}

	clear(s.selected)
	s.metrics.RecordSelectionCommit(metrics.OutcomeOK, len(ids))
	s.logger.Info("selection committed",
		slog.String("session_id", s.id),
		slog.Int("removed", len(ids)),
		slog.Int("remaining", len(coll)),
	)
	return coll, CommitCommitted, nil
}

func (s *Selection) selectedLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for id, on := range s.selected {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
