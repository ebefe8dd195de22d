package sfvalidator

// Severity represents the severity of a validation issue.
type Severity string

const (
	// SeverityError indicates a violation that makes the record invalid.
	SeverityError Severity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation Severity = "information"
)

// IssueCode identifies the kind of validation issue.
type IssueCode string

const (
	// CodeRequired indicates a required field is blank.
	CodeRequired IssueCode = "required"
	// CodeUnique indicates a uniqueness constraint violation.
	CodeUnique IssueCode = "unique"
	// CodeFormat indicates a value does not match its expected format.
	CodeFormat IssueCode = "format"
	// CodeRange indicates a numeric value outside its allowed range.
	CodeRange IssueCode = "range"
	// CodeBusinessRule indicates a validation-rule formula fired.
	CodeBusinessRule IssueCode = "business-rule"
	// CodeDependency indicates a cross-field dependency violation.
	CodeDependency IssueCode = "dependency"
	// CodeNotSupported indicates a rule uses functions the local
	// evaluator cannot execute.
	CodeNotSupported IssueCode = "not-supported"
	// CodeTimeout indicates validation stopped at a time budget.
	CodeTimeout IssueCode = "timeout"
	// CodePerformance indicates validation degraded for performance
	// reasons (sampling, truncation).
	CodePerformance IssueCode = "performance"
	// CodeProcessing indicates an internal processing problem.
	CodeProcessing IssueCode = "processing"
)

// Issue represents a single validation finding on a record.
type Issue struct {
	// Severity of the issue (error, warning, information)
	Severity Severity `json:"severity"`

	// Code identifying the kind of issue
	Code IssueCode `json:"code"`

	// Field is the field implicated, if known
	Field string `json:"field,omitempty"`

	// RuleID is the validation rule that fired, for business-rule issues
	RuleID string `json:"ruleId,omitempty"`

	// Message contains human-readable details
	Message string `json:"message"`

	// Check is the validation check that produced this issue
	Check string `json:"check,omitempty"`
}

// IsError returns true if this issue makes the record invalid.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	s := string(i.Severity) + ": " + i.Message
	if i.Field != "" {
		s += " [" + i.Field + "]"
	}
	return s
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity Severity, code IssueCode) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue builder.
func Error(code IssueCode) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue builder.
func Warning(code IssueCode) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue builder.
func Info(code IssueCode) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Message sets the diagnostic message.
func (b *IssueBuilder) Message(msg string) *IssueBuilder {
	b.issue.Message = msg
	return b
}

// On sets the implicated field.
func (b *IssueBuilder) On(field string) *IssueBuilder {
	b.issue.Field = field
	return b
}

// Rule sets the validation rule ID.
func (b *IssueBuilder) Rule(id string) *IssueBuilder {
	b.issue.RuleID = id
	return b
}

// Check sets the originating validation check.
func (b *IssueBuilder) Check(name string) *IssueBuilder {
	b.issue.Check = name
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
