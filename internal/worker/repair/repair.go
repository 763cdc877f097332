// Package repair は保存済みお気に入りの整合性修復ジョブを提供する。
// 重複IDやidの無いエントリを含む保存値を読み込み、修復後の配列で書き戻す。
// 空や null の保存値はキーごと削除する。解釈できない保存値は上書きせず、エラーとして報告する。
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/repository"
)

// Result は1回の実行結果を表す。
type Result struct {
	Found             bool // 保存値が存在したか
	Rewritten         bool // 修復後の値を書き戻したか
	Deleted           bool // 空の保存値を削除したか
	Entries           int  // 修復後のエントリ数
	DuplicatesDropped int
	MissingIDDropped  int
}

// RepairJob はお気に入りの保存値を修復するジョブ。
// 冪等: 修復対象がない場合は書き込みを行わない。
type RepairJob struct {
	repo    repository.KeyValueRepository
	logger  *slog.Logger
	Key     string
	Timeout time.Duration
}

// NewRepairJob は新しいRepairJobを生成する。
func NewRepairJob(repo repository.KeyValueRepository, logger *slog.Logger) *RepairJob {
	return &RepairJob{
		repo:    repo,
		logger:  logger,
		Key:     favorites.DefaultKey,
		Timeout: favorites.DefaultTimeout,
	}
}

// Run はKeyの保存値を検査し、必要であれば修復して書き戻す。
// サーバーと同じキーを扱うため、サーバー停止中に実行することを想定している。
func (j *RepairJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	raw, ok, err := j.repo.Read(ctx, j.Key)
	if err != nil {
		j.logger.Error("お気に入りの読み込みに失敗しました",
			slog.String("error", err.Error()),
			slog.String("key", j.Key),
		)
		return res, fmt.Errorf("お気に入りの読み込みに失敗: %w", err)
	}
	if !ok {
		j.logger.Info("修復対象のお気に入りがありません", slog.String("key", j.Key))
		return res, nil
	}
	res.Found = true

	// 未保存と同じ意味しか持たない値はキーごと消す
	if v := strings.TrimSpace(raw); v == "" || v == "null" {
		if err := j.repo.Delete(ctx, j.Key); err != nil {
			j.logger.Error("空のお気に入りの削除に失敗しました",
				slog.String("error", err.Error()),
				slog.String("key", j.Key),
			)
			return res, fmt.Errorf("空のお気に入りの削除に失敗: %w", err)
		}
		res.Deleted = true
		j.logger.Info("空のお気に入りを削除しました", slog.String("key", j.Key))
		return res, nil
	}

	coll, report, err := favorites.Decode(raw)
	if err != nil {
		j.logger.Error("お気に入りの保存値を解釈できません",
			slog.String("error", err.Error()),
			slog.String("key", j.Key),
		)
		return res, err
	}
	res.Entries = len(coll)
	res.DuplicatesDropped = report.DuplicatesDropped
	res.MissingIDDropped = report.MissingIDDropped

	if report.Repaired() {
		encoded, err := favorites.Encode(coll)
		if err != nil {
			return res, err
		}
		if err := j.repo.Write(ctx, j.Key, encoded); err != nil {
			j.logger.Error("修復したお気に入りの書き込みに失敗しました",
				slog.String("error", err.Error()),
				slog.String("key", j.Key),
			)
			return res, fmt.Errorf("修復したお気に入りの書き込みに失敗: %w", err)
		}
		res.Rewritten = true
	}

	j.logger.Info("お気に入り修復ジョブが完了しました",
		slog.String("key", j.Key),
		slog.Int("entries", res.Entries),
		slog.Int("duplicates_dropped", res.DuplicatesDropped),
		slog.Int("missing_id_dropped", res.MissingIDDropped),
		slog.Bool("rewritten", res.Rewritten),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}
