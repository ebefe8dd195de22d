// Package prevalidate screens large candidate batches before they are
// sent to an org. It trades depth for throughput: local checks only,
// memoized by record signature, sampling past a size threshold, and a
// cooperative wall-clock budget that returns partial results instead
// of blocking.
package prevalidate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/cache"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/engine"
)

// State describes how a pre-validation run ended.
type State string

const (
	// StateCompleted means every selected record was checked
	StateCompleted State = "completed"
	// StateTimedOut means the time budget expired mid-run
	StateTimedOut State = "timed_out"
)

// memoEntry is a cached verdict for one record signature.
type memoEntry struct {
	valid  bool
	risk   float64
	issues []sv.Issue
}

// PreValidator screens record batches through an engine's local
// checks. Safe for concurrent use.
type PreValidator struct {
	engine  *engine.Engine
	memo    *cache.Cache[uint64, memoEntry]
	options *sv.Options
	logger  *zap.Logger
}

// New creates a pre-validator on top of an engine. Options default to
// the engine's own configuration.
func New(eng *engine.Engine, opts ...sv.Option) *PreValidator {
	o := *eng.Options()
	for _, opt := range opts {
		opt(&o)
	}

	return &PreValidator{
		engine:  eng,
		memo:    cache.New[uint64, memoEntry](o.SignatureCache, 0),
		options: &o,
		logger:  o.Logger.Named("prevalidate"),
	}
}

// Result is the outcome of one pre-validation run. When sampling or a
// timeout limited the run, CheckedRecords is less than TotalRecords
// and Warnings explains why.
type Result struct {
	ObjectName string `json:"objectName"`
	State      State  `json:"state"`

	TotalRecords   int `json:"totalRecords"`
	CheckedRecords int `json:"checkedRecords"`
	ValidRecords   int `json:"validRecords"`
	InvalidRecords int `json:"invalidRecords"`

	// Sampled is true when only a subset of records was selected
	Sampled bool `json:"sampled"`

	// CoveragePercent is checked over total, as a percentage
	CoveragePercent float64 `json:"coveragePercent"`

	// MemoHits counts verdicts served from the signature cache
	MemoHits int `json:"memoHits"`

	// Results holds per-record outcomes for checked records, keyed by
	// their original index via RecordIndex
	Results []*sv.RecordResult `json:"results"`

	// Warnings carries run-level findings: sampling, timeout
	Warnings []sv.Issue `json:"warnings,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// PreValidate screens the batch within the given time budget. A zero
// timeout means no budget. Only a schema fetch failure returns an
// error; everything else degrades into the result.
func (p *PreValidator) PreValidate(ctx context.Context, objectName string, records []map[string]any, timeout time.Duration) (*Result, error) {
	start := time.Now()

	vc, err := p.engine.Context(ctx, objectName)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ObjectName:   vc.ObjectName,
		State:        StateCompleted,
		TotalRecords: len(records),
	}

	indices := p.selectIndices(len(records), res)

	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}

	sigFields := signatureFields(vc)
	for _, i := range indices {
		if !deadline.IsZero() && time.Now().After(deadline) {
			res.State = StateTimedOut
			res.Warnings = append(res.Warnings, sv.Warning(sv.CodeTimeout).
				Message(fmt.Sprintf("time budget of %s expired after %d of %d records; remaining records not checked", timeout, res.CheckedRecords, len(indices))).
				Check("prevalidate").
				Build())
			break
		}
		if ctx.Err() != nil {
			res.State = StateTimedOut
			res.Warnings = append(res.Warnings, sv.Warning(sv.CodeTimeout).
				Message("cancelled before all records were checked").
				Check("prevalidate").
				Build())
			break
		}

		rr := p.checkOne(vc, records[i], i, sigFields, res)
		res.Results = append(res.Results, rr)
		res.CheckedRecords++
		if rr.Valid {
			res.ValidRecords++
		} else {
			res.InvalidRecords++
		}
	}

	if res.TotalRecords > 0 {
		res.CoveragePercent = 100 * float64(res.CheckedRecords) / float64(res.TotalRecords)
	}
	res.Elapsed = time.Since(start)

	p.logger.Debug("pre-validation run",
		zap.String("object", vc.ObjectName),
		zap.String("state", string(res.State)),
		zap.Int("checked", res.CheckedRecords),
		zap.Int("invalid", res.InvalidRecords),
		zap.Int("memoHits", res.MemoHits),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}

// selectIndices picks which records to check. Past the sampling
// threshold an evenly strided subset stands in for the batch.
func (p *PreValidator) selectIndices(total int, res *Result) []int {
	if total <= p.options.SampleThreshold || p.options.SampleSize <= 0 {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	size := p.options.SampleSize
	if size > total {
		size = total
	}
	stride := total / size

	indices := make([]int, 0, size)
	for i := 0; i < total && len(indices) < size; i += stride {
		indices = append(indices, i)
	}

	res.Sampled = true
	res.Warnings = append(res.Warnings, sv.Warning(sv.CodePerformance).
		Message(fmt.Sprintf("batch of %d exceeds the %d-record threshold; checking a sample of %d", total, p.options.SampleThreshold, len(indices))).
		Check("prevalidate").
		Build())
	return indices
}

func (p *PreValidator) checkOne(vc *engine.ValidationContext, data map[string]any, index int, sigFields []string, res *Result) *sv.RecordResult {
	sig := signature(data, sigFields)

	if entry, ok := p.memo.Get(sig); ok {
		res.MemoHits++
		rr := sv.AcquireResult()
		rr.RecordIndex = index
		rr.Valid = entry.valid
		rr.RiskScore = entry.risk
		rr.AddIssues(entry.issues)
		return rr
	}

	rr := p.engine.ValidateRecordWithContext(vc, data, index)
	p.memo.Set(sig, memoEntry{
		valid:  rr.Valid,
		risk:   rr.RiskScore,
		issues: append([]sv.Issue(nil), rr.Issues...),
	})
	return rr
}

// signatureFields lists the fields that can influence a verdict: every
// constrained field plus every field any active rule reads.
func signatureFields(vc *engine.ValidationContext) []string {
	seen := make(map[string]bool)
	for _, fc := range vc.Constraints {
		seen[strings.ToLower(fc.Field)] = true
	}
	for _, dep := range vc.Dependencies {
		seen[strings.ToLower(dep.TargetField)] = true
		for _, f := range dep.SourceFields {
			seen[strings.ToLower(f)] = true
		}
	}
	for _, f := range vc.Analysis.ReferencedFields {
		seen[strings.ToLower(f)] = true
	}

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// signature hashes only the verdict-relevant fields, so records that
// differ in unvalidated fields share a memo entry.
func signature(data map[string]any, fields []string) uint64 {
	h := fnv.New64a()
	for _, f := range fields {
		v, ok := lookupField(data, f)
		if !ok {
			continue
		}
		h.Write([]byte(f))
		h.Write([]byte{0})
		fmt.Fprint(h, v)
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func lookupField(data map[string]any, lower string) (any, bool) {
	if v, ok := data[lower]; ok {
		return v, true
	}
	for k, v := range data {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}
