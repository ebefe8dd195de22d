package sfvalidator

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// ValidationLevel controls how thorough validation is.
type ValidationLevel string

const (
	// LevelBasic runs constraint checks only.
	LevelBasic ValidationLevel = "basic"
	// LevelStandard runs constraints, rules, and dependencies.
	LevelStandard ValidationLevel = "standard"
	// LevelComprehensive additionally escalates every record to the
	// advisor when one is configured.
	LevelComprehensive ValidationLevel = "comprehensive"
)

// Option configures validation components.
type Option func(*Options)

// Options holds all configuration shared by the engine, solver, and
// pre-validator.
type Options struct {
	// Validation behavior
	Level           ValidationLevel
	IncludeWarnings bool
	SkipAIAnalysis  bool

	// RiskThreshold is the per-record risk score at or above which a
	// locally valid record is still escalated to the advisor.
	RiskThreshold float64

	// Solver
	AttemptBudget int
	Seed          int64

	// Caching
	ContextTTL       time.Duration
	ContextCacheSize int
	SignatureCache   int

	// Background sweep of expired context entries
	SweepInterval time.Duration
	DisableSweep  bool

	// Concurrency
	MaxConcurrentValidations int

	// Pre-validation sampling
	SampleThreshold int
	SampleSize      int

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Level:           LevelStandard,
		IncludeWarnings: true,
		SkipAIAnalysis:  false,
		RiskThreshold:   7.0,

		AttemptBudget: 5,
		Seed:          0, // non-deterministic unless set

		ContextTTL:       time.Hour,
		ContextCacheSize: 100,
		SignatureCache:   1000,

		SweepInterval: 5 * time.Minute,
		DisableSweep:  false,

		MaxConcurrentValidations: runtime.NumCPU(),

		SampleThreshold: 500,
		SampleSize:      100,

		Logger: zap.NewNop(),
	}
}

// --- Validation Options ---

// WithLevel sets the validation level.
func WithLevel(level ValidationLevel) Option {
	return func(o *Options) {
		o.Level = level
	}
}

// WithWarnings controls whether warning-severity issues are reported.
func WithWarnings(include bool) Option {
	return func(o *Options) {
		o.IncludeWarnings = include
	}
}

// WithSkipAIAnalysis disables advisor escalation even when an advisor is
// configured.
func WithSkipAIAnalysis(skip bool) Option {
	return func(o *Options) {
		o.SkipAIAnalysis = skip
	}
}

// WithRiskThreshold sets the risk score at which valid records are still
// escalated to the advisor.
func WithRiskThreshold(threshold float64) Option {
	return func(o *Options) {
		if threshold >= 0 {
			o.RiskThreshold = threshold
		}
	}
}

// --- Solver Options ---

// WithAttemptBudget sets the per-record regeneration budget for the
// constraint solver.
func WithAttemptBudget(budget int) Option {
	return func(o *Options) {
		if budget > 0 {
			o.AttemptBudget = budget
		}
	}
}

// WithSeed fixes the random seed used for value synthesis, making
// generated records reproducible. A zero seed selects a random one.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// --- Cache Options ---

// WithContextTTL sets how long a cached validation context stays fresh.
func WithContextTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.ContextTTL = ttl
		}
	}
}

// WithContextCacheSize sets the validation context cache capacity.
func WithContextCacheSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ContextCacheSize = size
		}
	}
}

// WithSignatureCacheSize sets the pre-validator's memoization capacity.
func WithSignatureCacheSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.SignatureCache = size
		}
	}
}

// WithSweepInterval sets the interval of the background sweep that purges
// expired context cache entries.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.SweepInterval = interval
		}
	}
}

// WithSweepDisabled turns the background sweep off. Intended for tests;
// expired entries are still never served.
func WithSweepDisabled(disabled bool) Option {
	return func(o *Options) {
		o.DisableSweep = disabled
	}
}

// --- Concurrency Options ---

// WithMaxConcurrentValidations bounds batch validation concurrency.
// A value of 1 forces sequential processing.
func WithMaxConcurrentValidations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxConcurrentValidations = n
		}
	}
}

// --- Sampling Options ---

// WithSampling configures pre-validation sampling: batches larger than
// threshold are sampled down to sampleSize records.
func WithSampling(threshold, sampleSize int) Option {
	return func(o *Options) {
		if threshold > 0 {
			o.SampleThreshold = threshold
		}
		if sampleSize > 0 {
			o.SampleSize = sampleSize
		}
	}
}

// --- Logging ---

// WithLogger sets the zap logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// --- Presets ---

// FastOptions returns options optimized for throughput: no advisor, no
// warnings, aggressive sampling.
func FastOptions() []Option {
	return []Option{
		WithLevel(LevelBasic),
		WithWarnings(false),
		WithSkipAIAnalysis(true),
		WithSampling(200, 50),
	}
}

// ComprehensiveOptions returns options for maximum scrutiny.
func ComprehensiveOptions() []Option {
	return []Option{
		WithLevel(LevelComprehensive),
		WithWarnings(true),
		WithRiskThreshold(5.0),
	}
}

// TestingOptions returns options suitable for test environments:
// deterministic, sequential, no background goroutines.
func TestingOptions() []Option {
	return []Option{
		WithSweepDisabled(true),
		WithSkipAIAnalysis(true),
		WithMaxConcurrentValidations(1),
		WithSeed(1),
	}
}
