package rules

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/registry"
)

// renalRule is one dose-threshold entry: a drug (matched by canonical
// name or caller-supplied class) that is contraindicated or needs
// adjustment below an eGFR cutoff.
type renalRule struct {
	Drug        string
	Class       string
	CutoffEGFR  float64
	Severity    domain.Severity
	Code        string
	Action      string
	Reason      string
}

// RenalDosingModule is the dose-threshold pattern: it fires when a
// medication's renal cutoff exceeds the patient's measured eGFR.
type RenalDosingModule struct {
	drugs *drugbank.Store
	rules []renalRule
	log   *logrus.Logger
}

// NewRenalDosingModule creates the renal dosing module with its
// built-in threshold table.
func NewRenalDosingModule(drugs *drugbank.Store, log *logrus.Logger) *RenalDosingModule {
	return &RenalDosingModule{
		drugs: drugs,
		log:   log,
		rules: []renalRule{
			{
				Drug: "metformin", Class: "biguanide", CutoffEGFR: 30,
				Severity: domain.SeverityCritical, Code: registry.CodeRenalContraindication,
				Action: "Stop metformin; risk of lactic acidosis",
				Reason: "Metformin is contraindicated below eGFR 30 due to lactic acidosis risk",
			},
			{
				Drug: "nitrofurantoin", CutoffEGFR: 45,
				Severity: domain.SeverityHigh, Code: registry.CodeRenalContraindication,
				Action: "Avoid; inadequate urinary concentration and neuropathy risk",
				Reason: "Nitrofurantoin is ineffective and toxic below eGFR 45",
			},
			{
				Drug: "spironolactone", CutoffEGFR: 30,
				Severity: domain.SeverityHigh, Code: registry.CodeRenalContraindication,
				Action: "Avoid; hyperkalemia risk",
				Reason: "Potassium-sparing diuretics risk hyperkalemia below eGFR 30",
			},
			{
				Drug: "ibuprofen", Class: "nsaid", CutoffEGFR: 60,
				Severity: domain.SeverityHigh, Code: registry.CodeRenalDoseAdjust,
				Action: "Avoid routine NSAID use; prefer non-nephrotoxic analgesia",
				Reason: "NSAIDs reduce renal perfusion in existing impairment",
			},
			{
				Drug: "naproxen", Class: "nsaid", CutoffEGFR: 60,
				Severity: domain.SeverityHigh, Code: registry.CodeRenalDoseAdjust,
				Action: "Avoid routine NSAID use; prefer non-nephrotoxic analgesia",
				Reason: "NSAIDs reduce renal perfusion in existing impairment",
			},
			{
				Drug: "apixaban", Class: "doac", CutoffEGFR: 25,
				Severity: domain.SeverityModerate, Code: registry.CodeRenalDoseAdjust,
				Action: "Reduce dose per renal dosing table",
				Reason: "DOAC exposure rises with declining clearance",
			},
			{
				Drug: "digoxin", CutoffEGFR: 60,
				Severity: domain.SeverityModerate, Code: registry.CodeRenalDoseAdjust,
				Action: "Reduce dose and monitor level",
				Reason: "Digoxin is renally cleared with a narrow therapeutic index",
			},
			{
				Drug: "gabapentin", CutoffEGFR: 50,
				Severity: domain.SeverityModerate, Code: registry.CodeRenalDoseAdjust,
				Action: "Reduce dose per renal dosing table",
				Reason: "Gabapentin accumulates in renal impairment",
			},
		},
	}
}

// Name implements domain.RuleModule.
func (m *RenalDosingModule) Name() string { return "renal_dosing" }

// AlertCodes implements domain.RuleModule.
func (m *RenalDosingModule) AlertCodes() []string {
	return []string{registry.CodeRenalContraindication, registry.CodeRenalDoseAdjust}
}

// Eligible requires a renal lab and at least one medication.
func (m *RenalDosingModule) Eligible(p *domain.PatientState) bool {
	return p.EGFR != nil && hasMedications(p)
}

// Evaluate implements domain.RuleModule.
func (m *RenalDosingModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	egfr := *p.EGFR
	out := &domain.ModuleOutput{
		Applies: true,
		Notes:   map[string]any{"egfr": egfr},
	}

	for _, med := range p.Medications {
		rule, ok := m.match(med)
		if !ok {
			continue
		}
		if egfr >= rule.CutoffEGFR && !p.OnDialysis {
			continue
		}

		out.Alerts = append(out.Alerts, domain.Alert{
			Code:     rule.Code,
			Severity: rule.Severity,
			Message:  fmt.Sprintf("%s with eGFR %.0f (cutoff %.0f)", med.Name, egfr, rule.CutoffEGFR),
			Reason:   rule.Reason,
			Action:   rule.Action,
			Drug:     med.Name,
			Source:   m.Name(),
			Extras: map[string]any{
				"egfr":        egfr,
				"cutoff_egfr": rule.CutoffEGFR,
			},
		})
	}

	return out, nil
}

// match resolves the medication against the threshold table via the
// knowledge base (canonical name) or the caller-supplied class.
func (m *RenalDosingModule) match(med domain.Medication) (renalRule, bool) {
	canonical := ""
	if rec, ok := m.drugs.Resolve(med.Name); ok {
		canonical = strings.ToLower(rec.Name)
	} else {
		// Renal rules still apply when the caller pre-classified the
		// drug even if the name itself did not resolve.
		m.drugs.EffectsOf(med.Name, m.Name()) // routes the unknown-drug notification
	}

	class := strings.ToLower(strings.TrimSpace(med.Class))
	for _, rule := range m.rules {
		if canonical != "" && canonical == rule.Drug {
			return rule, true
		}
		if class != "" && rule.Class != "" && class == rule.Class {
			return rule, true
		}
	}
	return renalRule{}, false
}
