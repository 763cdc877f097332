// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作結果のラベル値。
const (
	OutcomeOK                    = "ok"
	OutcomeStorageUnavailable    = "storage_unavailable"
	OutcomeDeserializationFailed = "deserialization_failed"
	OutcomeNoSelection           = "no_selection"
	OutcomeCancelled             = "cancelled"
	OutcomeConfirmationFailed    = "confirmation_failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// お気に入りストアとHTTP層から利用する。
type MetricsCollector interface {
	RecordStoreOperation(op, outcome string, duration time.Duration)
	RecordFavoritesCount(count int)
	RecordSelectionCommit(outcome string, selected int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeOps         *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	favoritesCount   prometheus.Gauge
	selectionCommits *prometheus.CounterVec
	selectionSize    prometheus.Histogram
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchfav_store_operations_total",
			Help: "お気に入りストア操作の合計数（操作・結果別）",
		}, []string{"op", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watchfav_store_operation_seconds",
			Help:    "お気に入りストア操作のレイテンシ（秒）",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"op"}),
		favoritesCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchfav_favorites_count",
			Help: "最後に永続化されたお気に入りの件数",
		}),
		selectionCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchfav_selection_commits_total",
			Help: "一括削除の確定要求数（結果別）",
		}, []string{"outcome"}),
		selectionSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchfav_selection_size",
			Help:    "一括削除で確定された選択件数",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchfav_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.storeOps,
		c.storeLatency,
		c.favoritesCount,
		c.selectionCommits,
		c.selectionSize,
		c.httpStatus,
	)

	return c
}

// RecordStoreOperation はストア操作の結果とレイテンシを記録する。
func (c *Collector) RecordStoreOperation(op, outcome string, duration time.Duration) {
	c.storeOps.WithLabelValues(op, outcome).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordFavoritesCount は永続化後のお気に入り件数を記録する。
func (c *Collector) RecordFavoritesCount(count int) {
	c.favoritesCount.Set(float64(count))
}

// RecordSelectionCommit は一括削除の確定結果を記録する。
func (c *Collector) RecordSelectionCommit(outcome string, selected int) {
	c.selectionCommits.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		c.selectionSize.Observe(float64(selected))
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordStoreOperation(string, string, time.Duration) {}
func (NopCollector) RecordFavoritesCount(int)                           {}
func (NopCollector) RecordSelectionCommit(string, int)                  {}
func (NopCollector) RecordHTTPStatus(int)                               {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
