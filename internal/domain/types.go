// Package domain contains core business entities for medication safety
// evaluation: patient snapshots, safety alerts, and evaluation results.
//
// Alerts follow geriatric prescribing guidance (Beers-style avoid lists,
// anticholinergic burden scoring) but the types are guideline-agnostic.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity represents the clinical urgency of a safety alert.
// The set is closed; every alert produced anywhere in the system must
// carry one of these values.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Validation errors for clinical data integrity.
var (
	ErrInvalidSeverity   = errors.New("invalid alert severity")
	ErrInvalidAlertCode  = errors.New("alert code not in registry")
	ErrInvalidPatient    = errors.New("invalid patient state")
	ErrInvalidMedication = errors.New("invalid medication record")
)

// Rank returns the total order used for sorting and dedup tie-breaking.
// CRITICAL=1 through INFO=5; unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityModerate:
		return 3
	case SeverityLow:
		return 4
	case SeverityInfo:
		return 5
	default:
		return 6
	}
}

// IsValid reports whether the severity is a member of the closed set.
func (s Severity) IsValid() bool {
	return s.Rank() <= 5
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsBlocking reports whether alerts of this severity should block an
// order workflow pending clinician review.
func (s Severity) IsBlocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Medication is a single entry on the patient's active medication list.
// Name is free text and may include dose/strength suffixes; Class is an
// optional therapeutic category pre-classified by the caller.
// Immutable once created from caller input.
type Medication struct {
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
	Dose  string `json:"dose,omitempty"`
}

// Validate ensures the medication record can participate in evaluation.
func (m *Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("medication validation: %w: name is required", ErrInvalidMedication)
	}
	return nil
}

// PatientState is a snapshot of the clinical state consumed by the rule
// modules. All fields are optional unless a module documents otherwise;
// modules treat missing inputs as "insufficient data, skip".
// No component mutates a PatientState after construction.
type PatientState struct {
	Age int `json:"age,omitempty"`

	// EGFR is the renal function estimate in mL/min/1.73m2. A nil value
	// means no renal lab is available and renal modules do not apply.
	EGFR       *float64 `json:"egfr,omitempty"`
	OnDialysis bool     `json:"on_dialysis,omitempty"`

	Medications    []Medication `json:"medications,omitempty"`
	DiagnosisCodes []string     `json:"diagnosis_codes,omitempty"`

	// Conditions carries legacy free-text condition strings. They are
	// merged with the conditions derived from DiagnosisCodes.
	Conditions []string `json:"conditions,omitempty"`

	// Symptoms drives the toxidrome suggestion path only.
	Symptoms []string `json:"symptoms,omitempty"`

	RecentProcedure *time.Time `json:"recent_procedure,omitempty"`
	PPIDurationDays int        `json:"ppi_duration_days,omitempty"`
}

// Validate surfaces input shape violations before any module runs.
// Malformed input short-circuits the evaluation rather than being
// silently coerced.
func (p *PatientState) Validate() error {
	if p == nil {
		return fmt.Errorf("patient validation: %w: nil patient state", ErrInvalidPatient)
	}
	if p.Age < 0 || p.Age > 130 {
		return fmt.Errorf("patient validation: %w: age %d out of range", ErrInvalidPatient, p.Age)
	}
	if p.EGFR != nil && (*p.EGFR < 0 || *p.EGFR > 300) {
		return fmt.Errorf("patient validation: %w: eGFR %.1f out of range", ErrInvalidPatient, *p.EGFR)
	}
	for i := range p.Medications {
		if err := p.Medications[i].Validate(); err != nil {
			return fmt.Errorf("patient validation: medication %d: %w", i, err)
		}
	}
	return nil
}

// Alert is a single prioritized safety finding. Alerts are immutable
// once created by a rule module; the orchestrator may only relabel
// Source when merging duplicates.
type Alert struct {
	Code     string   `json:"alert_code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Reason   string   `json:"reason,omitempty"`
	Action   string   `json:"action,omitempty"`

	// Drug is the primary implicated medication, when there is one.
	Drug string `json:"drug,omitempty"`

	// DrugsInvolved names every medication participating in a
	// multi-drug finding (combination interactions, burden alerts).
	DrugsInvolved []string `json:"drugs_involved,omitempty"`

	// Source names the rule module(s) that produced the alert.
	Source string `json:"source"`

	Extras map[string]any `json:"extras,omitempty"`
}

// ModuleOutput is what a rule module returns: zero or more alerts plus
// module metadata. Applies=false means the module had insufficient data
// and skipped, which is not an error.
type ModuleOutput struct {
	Alerts  []Alert        `json:"alerts"`
	Applies bool           `json:"applies"`
	Notes   map[string]any `json:"notes,omitempty"`
}

// ModuleRun records per-module execution metadata for one evaluation.
type ModuleRun struct {
	Module     string        `json:"module"`
	Eligible   bool          `json:"eligible"`
	Applies    bool          `json:"applies"`
	Failed     bool          `json:"failed"`
	AlertCount int           `json:"alert_count"`
	Duration   time.Duration `json:"duration"`
}

// EvaluationResult is the outcome of one evaluate call. Summary counts
// are derived from Alerts and must always be recomputable from it.
type EvaluationResult struct {
	EvaluationID      string        `json:"evaluation_id"`
	Alerts            []Alert       `json:"alerts"`
	AlertCount        int           `json:"alert_count"`
	CriticalCount     int           `json:"critical_count"`
	HighCount         int           `json:"high_count"`
	HasBlockingAlerts bool          `json:"has_blocking_alerts"`
	ModuleRuns        []ModuleRun   `json:"module_runs"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Summarize recomputes the derived counts from the alert list.
func (r *EvaluationResult) Summarize() {
	r.AlertCount = len(r.Alerts)
	r.CriticalCount = 0
	r.HighCount = 0
	r.HasBlockingAlerts = false
	for i := range r.Alerts {
		switch r.Alerts[i].Severity {
		case SeverityCritical:
			r.CriticalCount++
		case SeverityHigh:
			r.HighCount++
		}
		if r.Alerts[i].Severity.IsBlocking() {
			r.HasBlockingAlerts = true
		}
	}
}

// LogFields returns structured logging fields for audit trails.
func (r *EvaluationResult) LogFields() map[string]any {
	return map[string]any{
		"evaluation_id":  r.EvaluationID,
		"alert_count":    r.AlertCount,
		"critical_count": r.CriticalCount,
		"high_count":     r.HighCount,
		"has_blocking":   r.HasBlockingAlerts,
		"elapsed":        r.Elapsed,
	}
}
