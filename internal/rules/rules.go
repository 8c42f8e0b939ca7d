// Package rules implements the rule modules: independent, pure
// evaluation units that turn a patient-state slice plus knowledge-base
// lookups into safety alerts. Modules never share state and never
// depend on invocation order.
package rules

import (
	"sort"
	"strings"

	"github.com/medrx-safety-engine/internal/domain"
)

// skip is the canonical "insufficient data" output: not an error.
func skip() *domain.ModuleOutput {
	return &domain.ModuleOutput{Applies: false}
}

// drugNames lowercases and sorts a drug list for DrugsInvolved fields,
// so multi-drug alerts carry a deterministic drug set.
func drugNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// hasMedications reports whether the patient has a non-empty
// medication list.
func hasMedications(p *domain.PatientState) bool {
	return p != nil && len(p.Medications) > 0
}
