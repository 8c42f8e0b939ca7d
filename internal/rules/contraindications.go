package rules

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/conditions"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/vocab"
)

// Interaction is one drug-condition contraindication record. A drug may
// produce several records across different conditions; collapsing them
// is the orchestrator's job, not this module's.
type Interaction struct {
	Drug           string
	ConditionKey   string
	HarmfulEffects []vocab.Tag
	Reason         string
}

// DrugConditionModule cross-references each medication's effect set
// against the avoid lists of the patient's derived conditions.
type DrugConditionModule struct {
	drugs      *drugbank.Store
	classifier *conditions.Classifier
	log        *logrus.Logger
}

// NewDrugConditionModule creates the contraindication matcher module.
func NewDrugConditionModule(drugs *drugbank.Store, classifier *conditions.Classifier, log *logrus.Logger) *DrugConditionModule {
	return &DrugConditionModule{drugs: drugs, classifier: classifier, log: log}
}

// Name implements domain.RuleModule.
func (m *DrugConditionModule) Name() string { return "drug_condition" }

// AlertCodes implements domain.RuleModule.
func (m *DrugConditionModule) AlertCodes() []string {
	return []string{registry.CodeDrugConditionConflict}
}

// Eligible requires medications plus at least one source of conditions.
func (m *DrugConditionModule) Eligible(p *domain.PatientState) bool {
	return hasMedications(p) && (len(p.DiagnosisCodes) > 0 || len(p.Conditions) > 0)
}

// Evaluate implements domain.RuleModule.
func (m *DrugConditionModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	keys := m.classifier.MergeLegacy(m.classifier.DeriveConditions(p.DiagnosisCodes), p.Conditions)
	interactions := m.MatchContraindications(p.Medications, keys)

	out := &domain.ModuleOutput{
		Applies: true,
		Notes: map[string]any{
			"condition_keys":    keys,
			"interaction_count": len(interactions),
		},
	}

	for _, ix := range interactions {
		effects := make([]string, len(ix.HarmfulEffects))
		for i, t := range ix.HarmfulEffects {
			effects[i] = string(t)
		}
		out.Alerts = append(out.Alerts, domain.Alert{
			Code:     registry.CodeDrugConditionConflict,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("%s conflicts with %s (%s)", ix.Drug, ix.ConditionKey, strings.Join(effects, ", ")),
			Reason:   ix.Reason,
			Action:   "Review indication; consider a safer alternative",
			Drug:     ix.Drug,
			Source:   m.Name(),
			Extras: map[string]any{
				"condition_key":   ix.ConditionKey,
				"harmful_effects": effects,
			},
		})
	}

	return out, nil
}

// MatchContraindications computes each drug's effect set once, then
// intersects it with every derived condition's avoid set, honoring the
// condition's drug exclusion list.
func (m *DrugConditionModule) MatchContraindications(meds []domain.Medication, conditionKeys []string) []Interaction {
	var out []Interaction
	for _, med := range meds {
		effects := m.drugs.EffectsOf(med.Name, m.Name())
		if len(effects) == 0 {
			continue
		}
		effectSet := make(map[vocab.Tag]struct{}, len(effects))
		for _, t := range effects {
			effectSet[t] = struct{}{}
		}

		for _, key := range conditionKeys {
			g, ok := m.classifier.Grouper(key)
			if !ok {
				continue
			}
			if g.ExcludesDrug(med.Name) {
				continue
			}

			var harmful []vocab.Tag
			for _, avoid := range g.AvoidEffects {
				if _, hit := effectSet[avoid]; hit {
					harmful = append(harmful, avoid)
				}
			}
			if len(harmful) == 0 {
				continue
			}

			out = append(out, Interaction{
				Drug:           med.Name,
				ConditionKey:   key,
				HarmfulEffects: harmful,
				Reason:         g.Reason,
			})
		}
	}
	return out
}
