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

// comboRule is the combination-detection pattern: an interaction fires
// when the medication list carries at least Threshold drugs with TagA,
// or one drug with TagA and one with TagB when TagB is set.
type comboRule struct {
	Key       string
	TagA      vocab.Tag
	TagB      vocab.Tag // empty means same-tag accumulation
	Threshold int       // minimum count of TagA drugs when TagB is empty
	Severity  domain.Severity
	Message   string
	Reason    string
	Action    string
}

// DrugDrugModule detects interacting medication combinations from
// overlapping effect tags.
type DrugDrugModule struct {
	drugs *drugbank.Store
	rules []comboRule
	log   *logrus.Logger
}

// NewDrugDrugModule creates the combination-detection module with its
// built-in rule table.
func NewDrugDrugModule(drugs *drugbank.Store, log *logrus.Logger) *DrugDrugModule {
	return &DrugDrugModule{
		drugs: drugs,
		log:   log,
		rules: []comboRule{
			{
				Key: "opioid_sedative", TagA: vocab.Opioid, TagB: vocab.Sedating,
				Severity: domain.SeverityCritical,
				Message:  "Opioid combined with another CNS depressant",
				Reason:   "Concurrent opioid and sedative use multiplies respiratory depression risk",
				Action:   "Avoid combination; taper one agent",
			},
			{
				Key: "serotonergic_pair", TagA: vocab.Serotonergic, Threshold: 2,
				Severity: domain.SeverityHigh,
				Message:  "Multiple serotonergic agents",
				Reason:   "Additive serotonergic load risks serotonin syndrome",
				Action:   "Review for serotonin syndrome; avoid adding further serotonergic drugs",
			},
			{
				Key: "qt_pair", TagA: vocab.QTProlonging, Threshold: 2,
				Severity: domain.SeverityHigh,
				Message:  "Multiple QT-prolonging agents",
				Reason:   "Additive QT prolongation risks torsades de pointes",
				Action:   "Obtain ECG; avoid stacking QT-prolonging drugs",
			},
			{
				Key: "bleeding_pair", TagA: vocab.BleedingRisk, Threshold: 2,
				Severity: domain.SeverityHigh,
				Message:  "Multiple bleeding-risk agents",
				Reason:   "Combined anticoagulant/antiplatelet/NSAID exposure compounds bleeding risk",
				Action:   "Review indication for each agent; consider gastroprotection",
			},
		},
	}
}

// Name implements domain.RuleModule.
func (m *DrugDrugModule) Name() string { return "drug_drug" }

// AlertCodes implements domain.RuleModule.
func (m *DrugDrugModule) AlertCodes() []string {
	return []string{registry.CodeDrugDrugInteraction}
}

// Eligible requires at least two medications.
func (m *DrugDrugModule) Eligible(p *domain.PatientState) bool {
	return p != nil && len(p.Medications) >= 2
}

// Evaluate implements domain.RuleModule.
func (m *DrugDrugModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	// One lookup per drug; effect sets are reused across all rules.
	byTag := make(map[vocab.Tag][]string)
	for _, med := range p.Medications {
		for _, t := range m.drugs.EffectsOf(med.Name, m.Name()) {
			byTag[t] = append(byTag[t], med.Name)
		}
	}

	out := &domain.ModuleOutput{Applies: true, Notes: map[string]any{}}

	for _, rule := range m.rules {
		var involved []string
		switch {
		case rule.TagB != "":
			a, b := byTag[rule.TagA], byTag[rule.TagB]
			// Pair rule: need one TagA drug and one distinct TagB drug.
			if len(a) == 0 || len(b) == 0 {
				continue
			}
			involved = distinctUnion(a, b)
			if len(involved) < 2 {
				continue
			}
		default:
			if len(byTag[rule.TagA]) < rule.Threshold {
				continue
			}
			involved = drugNames(byTag[rule.TagA])
		}

		out.Alerts = append(out.Alerts, domain.Alert{
			Code:          registry.CodeDrugDrugInteraction,
			Severity:      rule.Severity,
			Message:       fmt.Sprintf("%s: %s", rule.Message, strings.Join(involved, " + ")),
			Reason:        rule.Reason,
			Action:        rule.Action,
			DrugsInvolved: involved,
			Source:        m.Name(),
			Extras:        map[string]any{"combo_key": rule.Key},
		})
	}

	return out, nil
}

// distinctUnion merges two drug lists into a sorted, deduplicated set.
func distinctUnion(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, n := range append(drugNames(a), drugNames(b)...) {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return drugNames(out)
}
