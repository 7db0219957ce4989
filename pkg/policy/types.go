package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that block generation.
	SeverityError Severity = "error"

	// SeverityCritical is for violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Stage is the stage ID that violated the policy, when applicable.
	Stage string `json:"stage,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of evaluating all policies against a
// workflow.
type Result struct {
	// Allowed indicates if generation may proceed. Violations at error
	// or critical severity block it.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that could not be evaluated.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation happened.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Blocking returns the violations that prevent generation.
func (r *Result) Blocking() []Violation {
	var blocking []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError || v.Severity == SeverityCritical {
			blocking = append(blocking, v)
		}
	}
	return blocking
}

// Input is the document handed to Rego evaluation.
type Input struct {
	// Workflow is the decoded workflow representation: version, stages
	// and links exactly as serialized by the graph.
	Workflow map[string]interface{} `json:"workflow"`

	// Provider is the CI provider the workflow targets.
	Provider string `json:"provider,omitempty"`

	// Context provides additional evaluation context.
	Context *Context `json:"context"`
}

// Context provides context information for policy evaluation.
type Context struct {
	// Repository is the repository identifier the workflow was
	// synthesized from, when known.
	Repository string `json:"repository,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Operation is the operation being gated (e.g., "generate").
	Operation string `json:"operation,omitempty"`
}

// Bundle represents a collection of related policies.
type Bundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time `json:"created_at"`
}
