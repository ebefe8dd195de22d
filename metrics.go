package sfvalidator

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks validation performance using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Validation counts
	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	// Rule evaluation counts
	rulesEvaluated atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Advisor metrics
	advisorCalls    atomic.Uint64
	advisorFailures atomic.Uint64
	advisorTimeNs   atomic.Uint64

	// Solver metrics
	recordsGenerated atomic.Uint64
	solverRetries    atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64

	// Per-check timing
	checkTiming sync.Map // map[string]*checkMetrics
}

// checkMetrics tracks metrics for a single validation check.
type checkMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	issuesFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// --- Recording Methods ---

// RecordValidation records a completed record validation.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool) {
	m.validationsTotal.Add(1)
	if valid {
		m.validationsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordRuleEvaluations adds to the count of rule formulas evaluated.
func (m *Metrics) RecordRuleEvaluations(n int) {
	if n > 0 {
		m.rulesEvaluated.Add(uint64(n))
	}
}

// RecordCacheHit records a context cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a context cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordAdvisorCall records an advisor escalation and its outcome.
func (m *Metrics) RecordAdvisorCall(duration time.Duration, ok bool) {
	m.advisorCalls.Add(1)
	m.advisorTimeNs.Add(uint64(duration.Nanoseconds()))
	if !ok {
		m.advisorFailures.Add(1)
	}
}

// RecordGeneration records a solver-produced record and the retries it cost.
func (m *Metrics) RecordGeneration(retries int) {
	m.recordsGenerated.Add(1)
	if retries > 0 {
		m.solverRetries.Add(uint64(retries))
	}
}

// RecordIssue records an issue by severity.
func (m *Metrics) RecordIssue(severity Severity) {
	switch severity {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	}
}

// RecordCheck records metrics for one validation check execution.
func (m *Metrics) RecordCheck(name string, duration time.Duration, issuesFound int) {
	cm := m.getOrCreateCheckMetrics(name)
	cm.invocations.Add(1)
	cm.totalTime.Add(uint64(duration.Nanoseconds()))
	cm.issuesFound.Add(uint64(issuesFound))
}

func (m *Metrics) getOrCreateCheckMetrics(name string) *checkMetrics {
	if v, ok := m.checkTiming.Load(name); ok {
		return v.(*checkMetrics)
	}
	cm := &checkMetrics{}
	actual, _ := m.checkTiming.LoadOrStore(name, cm)
	return actual.(*checkMetrics)
}

// --- Query Methods ---

// ValidationsTotal returns the total number of record validations.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validationsTotal.Load()
}

// ValidationsValid returns the number of valid record validations.
func (m *Metrics) ValidationsValid() uint64 {
	return m.validationsValid.Load()
}

// RulesEvaluated returns the total number of rule formulas evaluated.
func (m *Metrics) RulesEvaluated() uint64 {
	return m.rulesEvaluated.Load()
}

// AverageValidationTime returns the average per-record validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total)
}

// MaxValidationTime returns the slowest record validation seen.
func (m *Metrics) MaxValidationTime() time.Duration {
	return time.Duration(m.validationTimeMax.Load())
}

// CacheHits returns total context cache hits.
func (m *Metrics) CacheHits() uint64 {
	return m.cacheHits.Load()
}

// CacheMisses returns total context cache misses.
func (m *Metrics) CacheMisses() uint64 {
	return m.cacheMisses.Load()
}

// CacheHitRate returns the context cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// AdvisorCalls returns the total advisor escalations.
func (m *Metrics) AdvisorCalls() uint64 {
	return m.advisorCalls.Load()
}

// AdvisorFailures returns advisor escalations that failed.
func (m *Metrics) AdvisorFailures() uint64 {
	return m.advisorFailures.Load()
}

// RecordsGenerated returns the total solver-produced records.
func (m *Metrics) RecordsGenerated() uint64 {
	return m.recordsGenerated.Load()
}

// SolverRetries returns the total field regenerations across all records.
func (m *Metrics) SolverRetries() uint64 {
	return m.solverRetries.Load()
}

// CheckStats holds statistics for a single validation check.
type CheckStats struct {
	Name        string
	Invocations uint64
	TotalTime   time.Duration
	AvgTime     time.Duration
	IssuesFound uint64
}

// AllCheckStats returns statistics for every recorded check.
func (m *Metrics) AllCheckStats() []CheckStats {
	var stats []CheckStats
	m.checkTiming.Range(func(key, value any) bool {
		cm := value.(*checkMetrics)
		invocations := cm.invocations.Load()
		totalTime := cm.totalTime.Load()

		var avgTime time.Duration
		if invocations > 0 {
			avgTime = time.Duration(totalTime / invocations)
		}

		stats = append(stats, CheckStats{
			Name:        key.(string),
			Invocations: invocations,
			TotalTime:   time.Duration(totalTime),
			AvgTime:     avgTime,
			IssuesFound: cm.issuesFound.Load(),
		})
		return true
	})
	return stats
}

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ValidationsTotal uint64  `json:"validations_total"`
	ValidationsValid uint64  `json:"validations_valid"`
	ValidationRate   float64 `json:"validation_rate"`
	RulesEvaluated   uint64  `json:"rules_evaluated"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	AdvisorCalls    uint64 `json:"advisor_calls"`
	AdvisorFailures uint64 `json:"advisor_failures"`
	AdvisorTimeNs   uint64 `json:"advisor_time_ns"`

	RecordsGenerated uint64 `json:"records_generated"`
	SolverRetries    uint64 `json:"solver_retries"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`

	Checks []CheckStats `json:"checks,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.validationsTotal.Load()
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	var avgNs uint64
	var rate, hitRate float64
	if total > 0 {
		avgNs = m.validationTimeTotal.Load() / total
		rate = float64(m.validationsValid.Load()) / float64(total)
	}
	if cacheTotal := hits + misses; cacheTotal > 0 {
		hitRate = float64(hits) / float64(cacheTotal)
	}

	return Snapshot{
		Timestamp:           time.Now(),
		ValidationsTotal:    total,
		ValidationsValid:    m.validationsValid.Load(),
		ValidationRate:      rate,
		RulesEvaluated:      m.rulesEvaluated.Load(),
		AvgValidationTimeNs: avgNs,
		MaxValidationTimeNs: m.validationTimeMax.Load(),
		CacheHits:           hits,
		CacheMisses:         misses,
		CacheHitRate:        hitRate,
		AdvisorCalls:        m.advisorCalls.Load(),
		AdvisorFailures:     m.advisorFailures.Load(),
		AdvisorTimeNs:       m.advisorTimeNs.Load(),
		RecordsGenerated:    m.recordsGenerated.Load(),
		SolverRetries:       m.solverRetries.Load(),
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		Checks:              m.AllCheckStats(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsValid.Store(0)
	m.rulesEvaluated.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.advisorCalls.Store(0)
	m.advisorFailures.Store(0)
	m.advisorTimeNs.Store(0)
	m.recordsGenerated.Store(0)
	m.solverRetries.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)

	m.checkTiming.Range(func(key, _ any) bool {
		m.checkTiming.Delete(key)
		return true
	})
}
