package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はGatherの結果から指定メトリクスのカウンタ値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric for %s, got %d", name, len(mf.GetMetric()))
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRebuildSuccess_IncrementsCounter は再構築成功カウンタが増加することを検証する。
func TestRecordRebuildSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRebuildSuccess(10, false)
	c.RecordRebuildSuccess(20, false)

	if val := counterValue(t, reg, "regman_rebuild_success_total"); val != 2 {
		t.Errorf("rebuild_success_total = %v, want 2", val)
	}
}

// TestRecordRebuildSuccess_Partial は打ち切り時にpartialカウンタも増加することを検証する。
func TestRecordRebuildSuccess_Partial(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRebuildSuccess(10, true)
	c.RecordRebuildSuccess(20, false)

	if val := counterValue(t, reg, "regman_rebuild_success_total"); val != 2 {
		t.Errorf("rebuild_success_total = %v, want 2", val)
	}
	if val := counterValue(t, reg, "regman_rebuild_partial_total"); val != 1 {
		t.Errorf("rebuild_partial_total = %v, want 1", val)
	}
}

// TestRecordRebuildFailure_IncrementsCounter は再構築失敗カウンタが増加することを検証する。
func TestRecordRebuildFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRebuildFailure()

	if val := counterValue(t, reg, "regman_rebuild_fail_total"); val != 1 {
		t.Errorf("rebuild_fail_total = %v, want 1", val)
	}
}

// TestRecordSearchTier_CountsByLabel はティアラベル別にカウントされることを検証する。
func TestRecordSearchTier_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearchTier("cache_strict")
	c.RecordSearchTier("cache_strict")
	c.RecordSearchTier("broad_relaxed")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() != "regman_search_tier_total" {
			continue
		}
		found = true
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label values, got %d", len(mf.GetMetric()))
		}
	}
	if !found {
		t.Error("regman_search_tier_total metric not found")
	}
}

// TestRecordEnrollOutcome_CountsByLabel は終端結果別にカウントされることを検証する。
func TestRecordEnrollOutcome_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEnrollOutcome("success")
	c.RecordEnrollOutcome("waitlist")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "regman_enroll_outcome_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Errorf("expected 2 label values, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("regman_enroll_outcome_total metric not found")
	}
}

// TestHandler_ServesMetrics は/metricsハンドラーが記録済みメトリクスを出力することを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRebuildSuccess(42, false)
	c.RecordRebuildDuration(3 * time.Second)
	c.RecordScanLatency(500 * time.Millisecond)

	h := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	text := string(body)
	for _, name := range []string{
		"regman_rebuild_success_total",
		"regman_rebuild_duration_seconds",
		"regman_scan_latency_seconds",
	} {
		if !strings.Contains(text, name) {
			t.Errorf("metrics output does not contain %s", name)
		}
	}
}
