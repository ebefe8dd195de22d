package sfvalidator

import (
	"sync"
)

// Fix is a suggested repair for a record.
type Fix struct {
	// Field is the field the fix applies to
	Field string `json:"field"`

	// Value is the proposed replacement value
	Value any `json:"value"`

	// Confidence in [0,1] that applying the fix resolves the issue
	Confidence float64 `json:"confidence"`

	// Reason documents why the fix was suggested
	Reason string `json:"reason,omitempty"`
}

// RecordResult contains the outcome of validating a single record.
// Use Release() to return it to the pool when done.
type RecordResult struct {
	// Valid is true if no error-severity issues were found
	Valid bool `json:"valid"`

	// Issues contains all findings for the record
	Issues []Issue `json:"issues,omitempty"`

	// RiskScore is a heuristic 0-10 score; higher means riskier
	RiskScore float64 `json:"riskScore"`

	// SuggestedFixes are mechanical repairs for the issues found
	SuggestedFixes []Fix `json:"suggestedFixes,omitempty"`

	// AdvisorConsulted is true if an external advisor reviewed the record
	AdvisorConsulted bool `json:"advisorConsulted"`

	// RecordIndex is the position of the record within its batch
	RecordIndex int `json:"recordIndex"`

	// mu protects concurrent access to Issues
	mu sync.Mutex
}

// recordResultPool holds reusable RecordResult instances.
var recordResultPool = sync.Pool{
	New: func() any {
		return &RecordResult{
			Issues: make([]Issue, 0, 8),
		}
	},
}

// AcquireResult gets a RecordResult from the pool.
// The result starts as valid with no issues.
func AcquireResult() *RecordResult {
	r := recordResultPool.Get().(*RecordResult)
	r.Reset()
	return r
}

// Release returns the RecordResult to the pool.
// After calling Release, the result should not be used.
func (r *RecordResult) Release() {
	if r == nil {
		return
	}
	if cap(r.Issues) <= 256 {
		recordResultPool.Put(r)
	}
}

// Reset clears the result for reuse.
func (r *RecordResult) Reset() {
	r.Valid = true
	r.Issues = r.Issues[:0]
	r.RiskScore = 0
	r.SuggestedFixes = r.SuggestedFixes[:0]
	r.AdvisorConsulted = false
	r.RecordIndex = 0
}

// AddIssue adds a finding to the result. Thread-safe.
func (r *RecordResult) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issue)
	if issue.IsError() {
		r.Valid = false
	}
}

// AddIssues adds multiple findings to the result. Thread-safe.
func (r *RecordResult) AddIssues(issues []Issue) {
	if len(issues) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issues...)
	for _, issue := range issues {
		if issue.IsError() {
			r.Valid = false
			break
		}
	}
}

// AddFix records a suggested repair.
func (r *RecordResult) AddFix(fix Fix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SuggestedFixes = append(r.SuggestedFixes, fix)
}

// Violations returns all error-severity issues.
func (r *RecordResult) Violations() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Issue
	for _, issue := range r.Issues {
		if issue.IsError() {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns all warning-severity issues.
func (r *RecordResult) Warnings() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Issue
	for _, issue := range r.Issues {
		if issue.IsWarning() {
			out = append(out, issue)
		}
	}
	return out
}

// ViolationCount returns the number of error-severity issues.
func (r *RecordResult) ViolationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if issue.IsError() {
			count++
		}
	}
	return count
}

// HasViolations returns true if any error-severity issue was found.
func (r *RecordResult) HasViolations() bool {
	return r.ViolationCount() > 0
}

// Merge combines another result into this one.
func (r *RecordResult) Merge(other *RecordResult) {
	if other == nil {
		return
	}

	other.mu.Lock()
	issues := make([]Issue, len(other.Issues))
	copy(issues, other.Issues)
	fixes := make([]Fix, len(other.SuggestedFixes))
	copy(fixes, other.SuggestedFixes)
	consulted := other.AdvisorConsulted
	score := other.RiskScore
	other.mu.Unlock()

	r.AddIssues(issues)

	r.mu.Lock()
	r.SuggestedFixes = append(r.SuggestedFixes, fixes...)
	if consulted {
		r.AdvisorConsulted = true
	}
	if score > r.RiskScore {
		r.RiskScore = score
	}
	r.mu.Unlock()
}

// Clone creates a copy of the result (not pooled).
func (r *RecordResult) Clone() *RecordResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &RecordResult{
		Valid:            r.Valid,
		Issues:           make([]Issue, len(r.Issues)),
		RiskScore:        r.RiskScore,
		SuggestedFixes:   make([]Fix, len(r.SuggestedFixes)),
		AdvisorConsulted: r.AdvisorConsulted,
		RecordIndex:      r.RecordIndex,
	}
	copy(clone.Issues, r.Issues)
	copy(clone.SuggestedFixes, r.SuggestedFixes)
	return clone
}

// NewResult creates a new (non-pooled) result.
// Prefer AcquireResult() for better performance.
func NewResult() *RecordResult {
	return &RecordResult{
		Valid:  true,
		Issues: make([]Issue, 0, 4),
	}
}
