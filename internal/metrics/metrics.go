// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// インデックス再構築・検索ティア・履修登録の各レコーダーインターフェースを実装する。
type Collector struct {
	rebuildSuccess  prometheus.Counter
	rebuildPartial  prometheus.Counter
	rebuildFail     prometheus.Counter
	rebuildDuration prometheus.Histogram
	rebuildItems    prometheus.Histogram
	searchTier      *prometheus.CounterVec
	scanLatency     prometheus.Histogram
	enrollOutcome   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rebuildSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regman_rebuild_success_total",
			Help: "インデックス再構築成功の合計数（部分結果を含む）",
		}),
		rebuildPartial: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regman_rebuild_partial_total",
			Help: "時間バジェット超過で打ち切られた再構築の合計数",
		}),
		rebuildFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regman_rebuild_fail_total",
			Help: "インデックス再構築失敗の合計数",
		}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regman_rebuild_duration_seconds",
			Help:    "インデックス再構築の所要時間（秒）",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 25, 30, 45},
		}),
		rebuildItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regman_rebuild_items",
			Help:    "再構築1回あたりに収集されたコース件数",
			Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		}),
		searchTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regman_search_tier_total",
			Help: "検索リクエストを充足したティア別の合計数",
		}, []string{"tier"}),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regman_scan_latency_seconds",
			Help:    "ライブスキャン1回のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		enrollOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regman_enroll_outcome_total",
			Help: "履修登録試行の終端結果別の合計数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.rebuildSuccess,
		c.rebuildPartial,
		c.rebuildFail,
		c.rebuildDuration,
		c.rebuildItems,
		c.searchTier,
		c.scanLatency,
		c.enrollOutcome,
	)

	return c
}

// RecordRebuildSuccess は再構築成功を記録する。partialは打ち切りの有無。
func (c *Collector) RecordRebuildSuccess(itemCount int, partial bool) {
	c.rebuildSuccess.Inc()
	if partial {
		c.rebuildPartial.Inc()
	}
	c.rebuildItems.Observe(float64(itemCount))
}

// RecordRebuildFailure は再構築失敗を記録する。
func (c *Collector) RecordRebuildFailure() {
	c.rebuildFail.Inc()
}

// RecordRebuildDuration は再構築の所要時間を記録する。
func (c *Collector) RecordRebuildDuration(d time.Duration) {
	c.rebuildDuration.Observe(d.Seconds())
}

// RecordSearchTier は検索を充足したティアを記録する。
func (c *Collector) RecordSearchTier(tier string) {
	c.searchTier.WithLabelValues(tier).Inc()
}

// RecordScanLatency はライブスキャンのレイテンシを記録する。
func (c *Collector) RecordScanLatency(d time.Duration) {
	c.scanLatency.Observe(d.Seconds())
}

// RecordEnrollOutcome は履修登録の終端結果を記録する。
func (c *Collector) RecordEnrollOutcome(outcome string) {
	c.enrollOutcome.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
