package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/vocab"
)

// toxidromeMinMatches is the minimum number of matched symptoms before
// a toxidrome is reported at all.
const toxidromeMinMatches = 2

// toxidrome is a named symptom cluster suggestive of a drug-effect
// pattern. Effect links the cluster back to the medication list: when
// a current drug carries the tag, the suggestion is upgraded.
type toxidrome struct {
	Name     string
	Effect   vocab.Tag
	Symptoms []string
}

// defaultToxidromes is scanned in declaration order; ties in match
// fraction keep this order.
var defaultToxidromes = []toxidrome{
	{
		Name:   "anticholinergic",
		Effect: vocab.Anticholinergic,
		Symptoms: []string{
			"dry mouth", "urinary retention", "blurred vision",
			"confusion", "constipation", "tachycardia", "flushing",
		},
	},
	{
		Name:   "serotonin_syndrome",
		Effect: vocab.Serotonergic,
		Symptoms: []string{
			"agitation", "tremor", "hyperthermia", "clonus",
			"diarrhea", "sweating", "hyperreflexia",
		},
	},
	{
		Name:   "opioid",
		Effect: vocab.Opioid,
		Symptoms: []string{
			"miosis", "respiratory depression", "sedation", "constipation",
		},
	},
	{
		Name:   "sedative_hypnotic",
		Effect: vocab.Sedating,
		Symptoms: []string{
			"ataxia", "slurred speech", "sedation", "nystagmus", "confusion",
		},
	},
}

// ToxidromeModule is the pattern-matching module: a diagnostic
// suggestion path driven by free-form symptoms, independent of the
// medication-driven alerts.
type ToxidromeModule struct {
	drugs      *drugbank.Store
	toxidromes []toxidrome
	log        *logrus.Logger
}

// NewToxidromeModule creates the toxidrome suggestion module.
func NewToxidromeModule(drugs *drugbank.Store, log *logrus.Logger) *ToxidromeModule {
	return &ToxidromeModule{drugs: drugs, toxidromes: defaultToxidromes, log: log}
}

// Name implements domain.RuleModule.
func (m *ToxidromeModule) Name() string { return "toxidrome" }

// AlertCodes implements domain.RuleModule.
func (m *ToxidromeModule) AlertCodes() []string {
	return []string{registry.CodeToxidromeSuggested}
}

// Eligible requires reported symptoms.
func (m *ToxidromeModule) Eligible(p *domain.PatientState) bool {
	return p != nil && len(p.Symptoms) > 0
}

type toxidromeMatch struct {
	def      toxidrome
	matched  []string
	fraction float64
	order    int
}

// Evaluate implements domain.RuleModule.
func (m *ToxidromeModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if !m.Eligible(p) {
		return skip(), nil
	}

	present := make(map[string]struct{}, len(p.Symptoms))
	for _, s := range p.Symptoms {
		present[normalizeSymptom(s)] = struct{}{}
	}

	var matches []toxidromeMatch
	for i, def := range m.toxidromes {
		var matched []string
		for _, sym := range def.Symptoms {
			if _, ok := present[normalizeSymptom(sym)]; ok {
				matched = append(matched, sym)
			}
		}
		if len(matched) < toxidromeMinMatches {
			continue
		}
		matches = append(matches, toxidromeMatch{
			def:      def,
			matched:  matched,
			fraction: float64(len(matched)) / float64(len(def.Symptoms)),
			order:    i,
		})
	}

	// Descending match fraction; declaration order breaks ties.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].fraction > matches[j].fraction
	})

	out := &domain.ModuleOutput{
		Applies: true,
		Notes:   map[string]any{"toxidromes_matched": len(matches)},
	}

	for _, match := range matches {
		severity := domain.SeverityInfo
		var culprits []string
		for _, med := range p.Medications {
			if m.drugs.HasEffect(med.Name, m.Name(), match.def.Effect) {
				culprits = append(culprits, med.Name)
			}
		}
		// A current medication carrying the toxidrome's effect turns a
		// pattern hint into an actionable suggestion.
		if len(culprits) > 0 {
			severity = domain.SeverityModerate
		}

		out.Alerts = append(out.Alerts, domain.Alert{
			Code:     registry.CodeToxidromeSuggested,
			Severity: severity,
			Message: fmt.Sprintf("Symptoms suggest %s toxidrome (%d/%d matched)",
				match.def.Name, len(match.matched), len(match.def.Symptoms)),
			Reason:        "Symptom cluster overlaps a recognized drug-effect pattern",
			Action:        "Correlate clinically; review medications with the matching effect",
			Drug:          firstOrEmpty(culprits),
			DrugsInvolved: drugNames(culprits),
			Source:        m.Name(),
			Extras: map[string]any{
				"toxidrome":        match.def.Name,
				"match_fraction":   match.fraction,
				"matched_symptoms": match.matched,
			},
		})
	}

	return out, nil
}

func normalizeSymptom(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func firstOrEmpty(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return drugNames(names)[0]
}
