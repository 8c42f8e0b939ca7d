// Package registry maintains the closed registry of alert codes. Rule
// modules declare the codes they emit and the engine validates those
// declarations at construction time, keeping registry checks out of
// the evaluation hot path.
package registry

import (
	"fmt"

	"github.com/medrx-safety-engine/internal/domain"
)

// Entry describes one registered alert code.
type Entry struct {
	Code            string
	Title           string
	DefaultSeverity domain.Severity
}

// Registered alert codes. The set is closed and externally maintained;
// adding a code here is a vocabulary change, not a runtime event.
const (
	CodeRenalContraindication = "RENAL_CONTRAINDICATION"
	CodeRenalDoseAdjust       = "RENAL_DOSE_ADJUST"
	CodeDrugConditionConflict = "DRUG_CONDITION_CONFLICT"
	CodeDrugDrugInteraction   = "DRUG_DRUG_INTERACTION"
	CodeACBHighBurden         = "ACB_HIGH_BURDEN"
	CodeCNSPolypharmacy       = "CNS_POLYPHARMACY"
	CodeToxidromeSuggested    = "TOXIDROME_SUGGESTED"
	CodeSystemFunctionError   = "SYSTEM_FUNCTION_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
)

// Registry is the immutable code registry.
type Registry struct {
	entries map[string]Entry
}

// Default returns the registry the engine ships with.
func Default() *Registry {
	return mustNew(
		Entry{CodeRenalContraindication, "Contraindicated in renal impairment", domain.SeverityCritical},
		Entry{CodeRenalDoseAdjust, "Dose adjustment required for renal function", domain.SeverityModerate},
		Entry{CodeDrugConditionConflict, "Drug contraindicated by active condition", domain.SeverityHigh},
		Entry{CodeDrugDrugInteraction, "Interacting drug combination", domain.SeverityHigh},
		Entry{CodeACBHighBurden, "High anticholinergic burden", domain.SeverityHigh},
		Entry{CodeCNSPolypharmacy, "CNS-active polypharmacy", domain.SeverityHigh},
		Entry{CodeToxidromeSuggested, "Symptom pattern suggests toxidrome", domain.SeverityInfo},
		Entry{CodeSystemFunctionError, "Rule module failed", domain.SeverityHigh},
		Entry{CodeInvalidInput, "Malformed evaluation input", domain.SeverityCritical},
	)
}

// New builds a registry, rejecting duplicate or invalid entries.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("registry entry with empty code")
		}
		if !e.DefaultSeverity.IsValid() {
			return nil, fmt.Errorf("registry entry %q: %w: %q", e.Code, domain.ErrInvalidSeverity, e.DefaultSeverity)
		}
		if _, dup := r.entries[e.Code]; dup {
			return nil, fmt.Errorf("duplicate registry entry %q", e.Code)
		}
		r.entries[e.Code] = e
	}
	return r, nil
}

func mustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Contains reports whether the code is registered.
func (r *Registry) Contains(code string) bool {
	_, ok := r.entries[code]
	return ok
}

// Entry returns the registry entry for a code.
func (r *Registry) Entry(code string) (Entry, bool) {
	e, ok := r.entries[code]
	return e, ok
}

// ValidateCodes checks a module's declared codes against the registry.
// Called once at engine construction, never per evaluation.
func (r *Registry) ValidateCodes(module string, codes []string) error {
	for _, code := range codes {
		if !r.Contains(code) {
			return fmt.Errorf("module %s: %w: %q", module, domain.ErrInvalidAlertCode, code)
		}
	}
	return nil
}

// Len returns the number of registered codes.
func (r *Registry) Len() int {
	return len(r.entries)
}
