package favorites

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/repository"
)

// DefaultKey はお気に入りを保存する既定のキー。
const DefaultKey = "favoriteWatches"

// DefaultTimeout は1回のストア操作に許す既定の時間。
const DefaultTimeout = 5 * time.Second

// ストア操作名。ログとメトリクスのラベルに使う。
const (
	OpLoad       = "load"
	OpContains   = "contains"
	OpToggle     = "toggle"
	OpRemoveOne  = "remove_one"
	OpRemoveAll  = "remove_all"
	OpRemoveMany = "remove_many"
)

// StoreOptions はStoreの設定。ゼロ値のフィールドは既定値になる。
type StoreOptions struct {
	Key     string
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.MetricsCollector
}

// Store はお気に入りコレクションを単一キーに保存するストア。
// 変更操作（Toggle/RemoveOne/RemoveAll/RemoveMany）は読み込みから書き込みまでを
// 1つのクリティカルセクションで実行するため、並行した変更で更新が失われない。
// 読み込みは共有ロックで行い、書きかけの値を観測しない。
type Store struct {
	repo    repository.KeyValueRepository
	key     string
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu    sync.RWMutex
	gen   atomic.Uint64
	loads singleflight.Group
}

// NewStore はStoreを生成する。プロセスごとに1つ生成し、各ビューへ注入する。
func NewStore(repo repository.KeyValueRepository, opts StoreOptions) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NopCollector{}
	}
	return &Store{
		repo:    repo,
		key:     opts.Key,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Key は保存先のキーを返す。
func (s *Store) Key() string {
	return s.key
}

// Ping は永続化媒体が利用可能かを確認する。
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		return model.NewStorageUnavailableError("ping", err)
	}
	return nil
}

type loadResult struct {
	coll model.FavoritesCollection
	err  error
}

// Load は保存済みのお気に入りを読み込む。
// キーが存在しない場合は空のコレクションを返す。
// 媒体の読み込みに失敗した場合はSTORAGE_UNAVAILABLE、
// 保存値が壊れている場合はDESERIALIZATION_FAILEDを空のコレクションとともに返す。
// 壊れた値は上書きしない。
func (s *Store) Load(ctx context.Context) (model.FavoritesCollection, error) {
	start := time.Now()
	coll, err := s.load(ctx)
	s.record(OpLoad, err, start)
	return coll, err
}

func (s *Store) load(ctx context.Context) (model.FavoritesCollection, error) {
	// 変更が完了するたびに世代が進むため、変更後の読み込みが変更前の読み込みに合流することはない
	flightKey := s.key + "#" + strconv.FormatUint(s.gen.Load(), 10)

	ch := s.loads.DoChan(flightKey, func() (any, error) {
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		s.mu.RLock()
		defer s.mu.RUnlock()
		coll, err := s.readLocked(opCtx)
		return loadResult{coll: coll, err: err}, nil
	})

	select {
	case res := <-ch:
		lr := res.Val.(loadResult)
		return lr.coll.Clone(), lr.err
	case <-ctx.Done():
		return model.FavoritesCollection{}, model.NewStorageUnavailableError(OpLoad, ctx.Err())
	}
}

// Contains はidがお気に入りに含まれるかを返す。
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	coll, err := s.load(ctx)
	s.record(OpContains, err, start)
	return coll.Contains(id), err
}

// Toggle はitemがお気に入りに無ければ末尾に追加し、あれば削除する。
// 保存値が壊れている場合は空として扱い、結果で上書きする。
// 書き込みに失敗した場合は変更前のコレクションとSTORAGE_UNAVAILABLEを返す。
func (s *Store) Toggle(ctx context.Context, item model.WatchItem) (model.FavoritesCollection, error) {
	if err := item.Validate(); err != nil {
		return model.FavoritesCollection{}, err
	}

	var added bool
	coll, err := s.mutate(ctx, OpToggle, true, func(current model.FavoritesCollection) model.FavoritesCollection {
		if i := current.IndexOf(item.ID); i >= 0 {
			next := make(model.FavoritesCollection, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			return next
		}
		added = true
		return append(current, item.Snapshot())
	})
	if err == nil {
		s.logger.Info("favorites toggled",
			slog.String("key", s.key),
			slog.String("watch_id", item.ID),
			slog.Bool("added", added),
			slog.Int("count", len(coll)),
		)
	}
	return coll, err
}

// RemoveOne はidのエントリを削除する。存在しない場合は変更しない。
func (s *Store) RemoveOne(ctx context.Context, id string) (model.FavoritesCollection, error) {
	return s.mutate(ctx, OpRemoveOne, false, func(current model.FavoritesCollection) model.FavoritesCollection {
		return current.Without(map[string]struct{}{id: {}})
	})
}

// RemoveMany はidsに含まれるすべてのエントリを削除する。
// idsが空の場合は何も書き込まず、現在のコレクションを返す。
func (s *Store) RemoveMany(ctx context.Context, ids []string) (model.FavoritesCollection, error) {
	if len(ids) == 0 {
		start := time.Now()
		coll, err := s.load(ctx)
		s.record(OpRemoveMany, err, start)
		return coll, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return s.mutate(ctx, OpRemoveMany, false, func(current model.FavoritesCollection) model.FavoritesCollection {
		return current.Without(set)
	})
}

// RemoveAll は空のコレクションを無条件に書き込む。
// 壊れた保存値もこの操作で置き換えられる。
func (s *Store) RemoveAll(ctx context.Context) (model.FavoritesCollection, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := s.writeLocked(opCtx, model.FavoritesCollection{})
	s.record(OpRemoveAll, err, start)
	if err != nil {
		s.logger.Error("failed to remove all favorites",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		// 書き込み結果が不明なため、現在の保存値を読み直して返す。
		// opCtxは期限切れの可能性があるので、読み直しには新しい期限を使う。
		readCtx, readCancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer readCancel()
		prev, readErr := s.readLocked(readCtx)
		if readErr != nil {
			s.logger.Warn("could not re-read favorites after failed clear",
				slog.String("key", s.key),
				slog.String("error", readErr.Error()),
			)
			return model.FavoritesCollection{}, err
		}
		return prev, err
	}
	s.logger.Info("favorites cleared", slog.String("key", s.key))
	return model.FavoritesCollection{}, nil
}

// mutate は読み込み、変更、書き込みを排他ロック下で実行する。
// ロック取得後は呼び出し元のキャンセルを無視し、タイムアウトのみで打ち切る。
// overwriteCorrupt がfalseの場合、壊れた保存値に対しては書き込まずにエラーを返す。
func (s *Store) mutate(
	ctx context.Context,
	op string,
	overwriteCorrupt bool,
	fn func(current model.FavoritesCollection) model.FavoritesCollection,
) (model.FavoritesCollection, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	current, err := s.readLocked(opCtx)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrDeserializationFailed) && overwriteCorrupt:
			s.logger.Warn("overwriting corrupt favorites",
				slog.String("op", op),
				slog.String("key", s.key),
			)
			current = model.FavoritesCollection{}
		default:
			s.record(op, err, start)
			return current, err
		}
	}

	next := fn(current.Clone())
	if err := s.writeLocked(opCtx, next); err != nil {
		s.record(op, err, start)
		s.logger.Error("failed to persist favorites",
			slog.String("op", op),
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return current, err
	}

	s.record(op, nil, start)
	return next.Clone(), nil
}

func (s *Store) readLocked(ctx context.Context) (model.FavoritesCollection, error) {
	raw, found, err := s.repo.Read(ctx, s.key)
	if err != nil {
		return model.FavoritesCollection{}, model.NewStorageUnavailableError("read", err)
	}
	if !found {
		return model.FavoritesCollection{}, nil
	}

	coll, report, err := Decode(raw)
	if err != nil {
		s.logger.Warn("stored favorites are corrupt",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return model.FavoritesCollection{}, err
	}
	if report.Repaired() {
		s.logger.Warn("repaired favorites on read",
			slog.String("key", s.key),
			slog.Int("duplicates_dropped", report.DuplicatesDropped),
			slog.Int("missing_id_dropped", report.MissingIDDropped),
		)
	}
	return coll, nil
}

func (s *Store) writeLocked(ctx context.Context, coll model.FavoritesCollection) error {
	blob, err := Encode(coll)
	if err != nil {
		return model.NewStorageUnavailableError("encode", err)
	}
	if err := s.repo.Write(ctx, s.key, blob); err != nil {
		return model.NewStorageUnavailableError("write", err)
	}
	s.gen.Add(1)
	s.metrics.RecordFavoritesCount(len(coll))
	return nil
}

func (s *Store) record(op string, err error, start time.Time) {
	s.metrics.RecordStoreOperation(op, outcomeOf(err), time.Since(start))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, model.ErrDeserializationFailed):
		return metrics.OutcomeDeserializationFailed
	case errors.Is(err, model.ErrNoSelection):
		return metrics.OutcomeNoSelection
	default:
		return metrics.OutcomeStorageUnavailable
	}
}
