package domain

import "context"

// RuleModule is an independent, side-effect-free evaluation unit. A
// module consumes a slice of patient state plus the knowledge-base
// outputs its constructor was given and produces zero or more alerts
// plus metadata.
//
// Contract: Eligible and Evaluate must not mutate the patient state,
// must not depend on other modules' output, and must treat missing
// optional inputs as "insufficient data, skip" (Applies=false) rather
// than an error. A returned error or panic is isolated by the
// orchestrator.
type RuleModule interface {
	// Name identifies the module in alert sources and metadata.
	Name() string

	// AlertCodes declares every alert code the module can emit, for
	// registry validation at engine construction.
	AlertCodes() []string

	// Eligible is the static applicability predicate, computed before
	// invocation and itself side-effect-free.
	Eligible(p *PatientState) bool

	// Evaluate produces the module's alerts for the patient.
	Evaluate(p *PatientState) (*ModuleOutput, error)
}

// AuditSink persists evaluation summaries for traceability. Failures
// are advisory and must never affect an evaluation result.
type AuditSink interface {
	SaveEvaluation(ctx context.Context, p *PatientState, r *EvaluationResult) error
}
