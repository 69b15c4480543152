// Package monitoring tracks serving-side counters for the metrics endpoint.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// Collector accumulates prediction counters and latency figures.
type Collector struct {
	mu sync.RWMutex

	startTime time.Time

	predictionCount int64
	errorCount      int64
	cacheHits       int64
	riskCounts      map[string]int64

	latencyTotal time.Duration
	latencyMax   time.Duration

	featureSums   map[string]float64
	featureCounts map[string]int64
}

func NewCollector() *Collector {
	return &Collector{
		startTime:     time.Now(),
		riskCounts:    make(map[string]int64),
		featureSums:   make(map[string]float64),
		featureCounts: make(map[string]int64),
	}
}

// RecordPrediction records one served prediction and its latency.
func (c *Collector) RecordPrediction(riskLevel string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.predictionCount++
	c.riskCounts[riskLevel]++
	c.latencyTotal += latency
	if latency > c.latencyMax {
		c.latencyMax = latency
	}
}

// RecordFeatures folds one request's inputs into the running feature means.
func (c *Collector) RecordFeatures(input map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, value := range input {
		c.featureSums[name] += value
		c.featureCounts[name]++
	}
}

// RecordError records a request that failed validation or inference.
func (c *Collector) RecordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}

// RecordCacheHit records a prediction answered from the response cache.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// Snapshot returns the current counters plus process stats.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var avgLatencyMs float64
	if c.predictionCount > 0 {
		avgLatencyMs = float64(c.latencyTotal.Microseconds()) / float64(c.predictionCount) / 1000.0
	}

	riskCounts := make(map[string]int64, len(c.riskCounts))
	for level, count := range c.riskCounts {
		riskCounts[level] = count
	}

	featureMeans := make(map[string]float64, len(c.featureSums))
	for name, sum := range c.featureSums {
		if count := c.featureCounts[name]; count > 0 {
			featureMeans[name] = sum / float64(count)
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":           time.Since(c.startTime).String(),
		"prediction_count": c.predictionCount,
		"error_count":      c.errorCount,
		"cache_hits":       c.cacheHits,
		"risk_counts":      riskCounts,
		"latency_avg_ms":   avgLatencyMs,
		"latency_max_ms":   float64(c.latencyMax.Microseconds()) / 1000.0,
		"feature_means":    featureMeans,
		"system": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": m.HeapAlloc,
			"gc_count":   m.NumGC,
		},
	}
}
