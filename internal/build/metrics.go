package build

import (
	"sync"
	"time"

	"github.com/conneroisu/wxjsx/internal/errors"
)

// Metrics accumulates document build outcomes across batches.
type Metrics struct {
	mu       sync.Mutex
	snapshot MetricsSnapshot
}

// MetricsSnapshot is a copy of the counters at one point in time.
type MetricsSnapshot struct {
	TotalBuilds      int64 `json:"total_builds" yaml:"total_builds"`
	SuccessfulBuilds int64 `json:"successful_builds" yaml:"successful_builds"`
	FailedBuilds     int64 `json:"failed_builds" yaml:"failed_builds"`
	CacheHits        int64 `json:"cache_hits" yaml:"cache_hits"`
	// BytesWritten counts generated output of successful builds.
	BytesWritten int64 `json:"bytes_written" yaml:"bytes_written"`
	// FailuresByCode groups failed builds by error code. Failures without a
	// code are counted under "UNKNOWN".
	FailuresByCode  map[string]int64 `json:"failures_by_code,omitempty" yaml:"failures_by_code,omitempty"`
	TotalDuration   time.Duration    `json:"total_duration" yaml:"total_duration"`
	AverageDuration time.Duration    `json:"average_duration" yaml:"average_duration"`
	Slowest         string           `json:"slowest,omitempty" yaml:"slowest,omitempty"`
	SlowestDuration time.Duration    `json:"slowest_duration,omitempty" yaml:"slowest_duration,omitempty"`
}

// CacheHitRate is the percentage of builds served from the cache.
func (s MetricsSnapshot) CacheHitRate() float64 {
	return percent(s.CacheHits, s.TotalBuilds)
}

// SuccessRate is the percentage of builds that produced output.
func (s MetricsSnapshot) SuccessRate() float64 {
	return percent(s.SuccessfulBuilds, s.TotalBuilds)
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// NewMetrics creates empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record adds one build result.
func (m *Metrics) Record(result BuildResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.snapshot
	s.TotalBuilds++
	s.TotalDuration += result.Duration
	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)

	if result.CacheHit {
		s.CacheHits++
	}

	if result.Error != nil {
		s.FailedBuilds++
		if s.FailuresByCode == nil {
			s.FailuresByCode = make(map[string]int64)
		}
		s.FailuresByCode[failureCode(result.Error)]++
		return
	}

	s.SuccessfulBuilds++
	s.BytesWritten += int64(len(result.Output))
	if result.Document != nil && result.Duration > s.SlowestDuration {
		s.Slowest = result.Document.Name
		s.SlowestDuration = result.Duration
	}
}

// Snapshot returns a copy safe to use without the lock.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snapshot
	if s.FailuresByCode != nil {
		s.FailuresByCode = make(map[string]int64, len(m.snapshot.FailuresByCode))
		for code, n := range m.snapshot.FailuresByCode {
			s.FailuresByCode[code] = n
		}
	}
	return s
}

// Reset clears every counter.
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.snapshot = MetricsSnapshot{}
	m.mu.Unlock()
}

func failureCode(err error) string {
	if ce, ok := errors.AsCompileError(err); ok && ce.Code != "" {
		return ce.Code
	}
	return "UNKNOWN"
}
