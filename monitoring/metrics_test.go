package monitoring

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	collector := NewCollector()
	collector.RecordPrediction("Low", 2*time.Millisecond)
	collector.RecordPrediction("High", 4*time.Millisecond)
	collector.RecordError()
	collector.RecordCacheHit()
	collector.RecordFeatures(map[string]float64{"age": 50})
	collector.RecordFeatures(map[string]float64{"age": 60})

	snapshot := collector.Snapshot()
	if snapshot["prediction_count"] != int64(2) {
		t.Fatalf("expected 2 predictions, got %v", snapshot["prediction_count"])
	}
	if snapshot["error_count"] != int64(1) {
		t.Fatalf("expected 1 error, got %v", snapshot["error_count"])
	}
	if snapshot["cache_hits"] != int64(1) {
		t.Fatalf("expected 1 cache hit, got %v", snapshot["cache_hits"])
	}

	riskCounts, ok := snapshot["risk_counts"].(map[string]int64)
	if !ok {
		t.Fatalf("unexpected risk_counts type: %T", snapshot["risk_counts"])
	}
	if riskCounts["Low"] != 1 || riskCounts["High"] != 1 {
		t.Fatalf("unexpected risk counts: %v", riskCounts)
	}

	avg, ok := snapshot["latency_avg_ms"].(float64)
	if !ok || avg <= 0 {
		t.Fatalf("expected positive average latency, got %v", snapshot["latency_avg_ms"])
	}

	featureMeans, ok := snapshot["feature_means"].(map[string]float64)
	if !ok {
		t.Fatalf("unexpected feature_means type: %T", snapshot["feature_means"])
	}
	if featureMeans["age"] != 55 {
		t.Fatalf("expected age mean 55, got %v", featureMeans["age"])
	}
}
