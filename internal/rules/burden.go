package rules

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/vocab"
)

// acbAlertThreshold is the cumulative ACB score at which the burden
// alert fires.
const acbAlertThreshold = 3

// acbMinAge restricts the burden module to the geriatric population
// the ACB scale was validated in.
const acbMinAge = 65

// ACBBurdenModule is the burden-scoring pattern over anticholinergic
// load: it sums each medication's ACB contribution and alerts at the
// fixed threshold.
type ACBBurdenModule struct {
	drugs *drugbank.Store
	log   *logrus.Logger
}

// NewACBBurdenModule creates the anticholinergic burden module.
func NewACBBurdenModule(drugs *drugbank.Store, log *logrus.Logger) *ACBBurdenModule {
	return &ACBBurdenModule{drugs: drugs, log: log}
}

// Name implements domain.RuleModule.
func (m *ACBBurdenModule) Name() string { return "acb_burden" }

// AlertCodes implements domain.RuleModule.
func (m *ACBBurdenModule) AlertCodes() []string {
	return []string{registry.CodeACBHighBurden}
}

// Eligible requires an elderly patient with medications.
func (m *ACBBurdenModule) Eligible(p *domain.PatientState) bool {
	return p != nil && p.Age >= acbMinAge && hasMedications(p)
}

// Evaluate implements domain.RuleModule.
func (m *ACBBurdenModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	total := 0
	var contributors []string
	for _, med := range p.Medications {
		score := m.drugs.ACBOf(med.Name, m.Name())
		if score > 0 {
			total += score
			contributors = append(contributors, med.Name)
		}
	}

	out := &domain.ModuleOutput{
		Applies: true,
		Notes:   map[string]any{"acb_score": total},
	}
	if total < acbAlertThreshold {
		return out, nil
	}

	involved := drugNames(contributors)
	out.Alerts = append(out.Alerts, domain.Alert{
		Code:          registry.CodeACBHighBurden,
		Severity:      domain.SeverityHigh,
		Message:       fmt.Sprintf("Anticholinergic burden score %d (threshold %d): %s", total, acbAlertThreshold, strings.Join(involved, ", ")),
		Reason:        "Cumulative anticholinergic exposure is associated with cognitive decline and falls in older adults",
		Action:        "Deprescribe or substitute the highest-scoring agents",
		DrugsInvolved: involved,
		Source:        m.Name(),
		Extras:        map[string]any{"acb_score": total},
	})
	return out, nil
}

// cnsActiveTags is the fixed CNS-active effect subset counted by the
// polypharmacy module.
var cnsActiveTags = []vocab.Tag{vocab.Opioid, vocab.Sedating, vocab.FallRisk}

// cnsAlertThreshold is the CNS-active medication count at which the
// polypharmacy alert fires.
const cnsAlertThreshold = 3

// CNSPolypharmacyModule counts medications whose effect set intersects
// the CNS-active subset and alerts at the fixed threshold.
type CNSPolypharmacyModule struct {
	drugs *drugbank.Store
	log   *logrus.Logger
}

// NewCNSPolypharmacyModule creates the CNS polypharmacy module.
func NewCNSPolypharmacyModule(drugs *drugbank.Store, log *logrus.Logger) *CNSPolypharmacyModule {
	return &CNSPolypharmacyModule{drugs: drugs, log: log}
}

// Name implements domain.RuleModule.
func (m *CNSPolypharmacyModule) Name() string { return "cns_polypharmacy" }

// AlertCodes implements domain.RuleModule.
func (m *CNSPolypharmacyModule) AlertCodes() []string {
	return []string{registry.CodeCNSPolypharmacy}
}

// Eligible requires enough medications to cross the threshold at all.
func (m *CNSPolypharmacyModule) Eligible(p *domain.PatientState) bool {
	return p != nil && len(p.Medications) >= cnsAlertThreshold
}

// Evaluate implements domain.RuleModule.
func (m *CNSPolypharmacyModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	var active []string
	for _, med := range p.Medications {
		effects := m.drugs.EffectsOf(med.Name, m.Name())
		if intersectsCNS(effects) {
			active = append(active, med.Name)
		}
	}

	out := &domain.ModuleOutput{
		Applies: true,
		Notes:   map[string]any{"cns_active_count": len(active)},
	}
	if len(active) < cnsAlertThreshold {
		return out, nil
	}

	involved := drugNames(active)
	out.Alerts = append(out.Alerts, domain.Alert{
		Code:          registry.CodeCNSPolypharmacy,
		Severity:      domain.SeverityHigh,
		Message:       fmt.Sprintf("%d CNS-active medications: %s", len(involved), strings.Join(involved, ", ")),
		Reason:        "Three or more CNS-active drugs independently predict falls and fracture",
		Action:        "Taper to the minimum effective CNS-active regimen",
		DrugsInvolved: involved,
		Source:        m.Name(),
		Extras:        map[string]any{"cns_active_count": len(involved)},
	})
	return out, nil
}

func intersectsCNS(effects []vocab.Tag) bool {
	for _, t := range effects {
		for _, c := range cnsActiveTags {
			if t == c {
				return true
			}
		}
	}
	return false
}
