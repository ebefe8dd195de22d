// Package engine orchestrates constraint-aware record validation: it
// assembles per-object validation contexts, runs local checks, and
// escalates risky records to an optional AI advisor.
//
// A context bundles the object schema, its parsed validation rules and
// the extracted constraints, and is cached with a TTL so stale org
// metadata ages out without refetching on every call.
package engine

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/advisor"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/cache"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// Engine validates records against Salesforce object schemas and
// validation rules. Safe for concurrent use.
type Engine struct {
	provider schema.Provider
	advisor  advisor.Advisor

	options    *sv.Options
	eval       *formula.Evaluator
	ruleParser *rule.Parser
	checks     []check

	contexts *cache.Cache[string, *ValidationContext]
	metrics  *sv.Metrics
	logger   *zap.Logger

	sweepStop chan struct{}
	closeOnce sync.Once
}

// New creates a validation engine. The schema provider is required;
// everything else has defaults.
func New(provider schema.Provider, opts ...sv.Option) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("engine: schema provider is required")
	}

	o := sv.DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	eval := formula.NewEvaluator()
	e := &Engine{
		provider:   provider,
		options:    o,
		eval:       eval,
		ruleParser: rule.NewParser(eval),
		contexts:   cache.New[string, *ValidationContext](o.ContextCacheSize, o.ContextTTL),
		metrics:    sv.NewMetrics(),
		logger:     o.Logger.Named("engine"),
		sweepStop:  make(chan struct{}),
	}

	e.checks = []check{
		constraintCheck{},
		dependencyCheck{eval: eval},
		ruleCheck{eval: eval},
	}

	if !o.DisableSweep && o.SweepInterval > 0 {
		go e.sweep()
	}

	return e, nil
}

// SetAdvisor attaches an AI advisor for escalation of risky records.
// Call before validating; the advisor is not guarded by a lock.
func (e *Engine) SetAdvisor(a advisor.Advisor) {
	e.advisor = a
}

// Metrics returns the engine's metrics collector.
func (e *Engine) Metrics() *sv.Metrics {
	return e.metrics
}

// Options returns the engine's configuration.
func (e *Engine) Options() *sv.Options {
	return e.options
}

// CacheStats reports context cache statistics.
func (e *Engine) CacheStats() cache.Stats {
	return e.contexts.Stats()
}

// CacheHealth reports a qualitative assessment of the context cache.
func (e *Engine) CacheHealth() cache.HealthInfo {
	return e.contexts.HealthInfo()
}

// ClearCache drops every cached validation context. The next
// validation per object refetches the schema.
func (e *Engine) ClearCache() {
	e.contexts.Clear()
}

// InvalidateContext drops one object's cached context, for callers
// that know the org metadata changed.
func (e *Engine) InvalidateContext(objectName string) {
	e.contexts.Delete(objectName)
}

// sweep purges expired contexts in the background until Close.
func (e *Engine) sweep() {
	ticker := time.NewTicker(e.options.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if purged := e.contexts.Cleanup(); purged > 0 {
				e.logger.Debug("context cache sweep", zap.Int("purged", purged))
			}
		case <-e.sweepStop:
			return
		}
	}
}

// Close stops the background sweep and clears the cache. The engine
// remains usable after Close but no longer ages contexts out.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.sweepStop)
		e.contexts.Clear()
	})
	return nil
}
