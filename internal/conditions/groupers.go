package conditions

import "github.com/medrx-safety-engine/internal/vocab"

// DefaultGroupers is the built-in condition grouper table. Prefixes are
// ICD-10-style, uppercase, dot-free. Prefixes across groupers may
// overlap; a single code can activate several conditions.
func DefaultGroupers() []Grouper {
	return []Grouper{
		{
			Key:          "dementia",
			CodePrefixes: []string{"F00", "F01", "F02", "F03", "G30", "G31"},
			AvoidEffects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating},
			Reason:       "Anticholinergic and sedating drugs worsen cognition and precipitate delirium",
			Note:         "Beers: avoid anticholinergics in dementia",
		},
		{
			Key:          "delirium",
			CodePrefixes: []string{"F05"},
			AvoidEffects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.DopamineBlocking},
			Reason:       "CNS-active drugs prolong and deepen delirium",
		},
		{
			Key:          "heart_failure",
			CodePrefixes: []string{"I50", "I110", "I130", "I132"},
			AvoidEffects: []vocab.Tag{vocab.FluidRetaining},
			Reason:       "Sodium and fluid retention can precipitate decompensation",
			Note:         "NSAIDs and glucocorticoids are the usual offenders",
		},
		{
			Key:          "ckd",
			CodePrefixes: []string{"N18", "N19"},
			AvoidEffects: []vocab.Tag{vocab.Nephrotoxic},
			ExcludeDrugs: []string{"aspirin"},
			Reason:       "Nephrotoxic drugs accelerate loss of renal function",
			Note:         "Low-dose aspirin exempted per cardiology guidance",
		},
		{
			Key:          "parkinsons",
			CodePrefixes: []string{"G20", "G21"},
			AvoidEffects: []vocab.Tag{vocab.DopamineBlocking},
			Reason:       "Dopamine antagonists worsen motor symptoms",
			Note:         "Quetiapine sometimes tolerated but not exempted here",
		},
		{
			Key:          "epilepsy",
			CodePrefixes: []string{"G40", "G41"},
			AvoidEffects: []vocab.Tag{vocab.SeizureLowering},
			Reason:       "Seizure-threshold-lowering drugs increase seizure frequency",
		},
		{
			Key:          "falls_history",
			CodePrefixes: []string{"R296", "W19", "Z9181"},
			AvoidEffects: []vocab.Tag{vocab.FallRisk, vocab.Sedating, vocab.Hypotensive},
			Reason:       "Sedatives, hypotensives, and other fall-risk drugs compound recurrent falls",
		},
		{
			Key:          "orthostatic_hypotension",
			CodePrefixes: []string{"I951"},
			AvoidEffects: []vocab.Tag{vocab.Hypotensive},
			Reason:       "Further blood-pressure lowering worsens orthostatic symptoms",
		},
		{
			Key:          "bradycardia",
			CodePrefixes: []string{"R001", "I495"},
			AvoidEffects: []vocab.Tag{vocab.Bradycardic},
			Reason:       "Rate-lowering drugs risk symptomatic bradycardia and blocks",
		},
		{
			Key:          "long_qt",
			CodePrefixes: []string{"I458"},
			AvoidEffects: []vocab.Tag{vocab.QTProlonging},
			Reason:       "QT-prolonging drugs risk torsades de pointes",
		},
		{
			Key:          "peptic_ulcer",
			CodePrefixes: []string{"K25", "K26", "K27", "K28"},
			AvoidEffects: []vocab.Tag{vocab.BleedingRisk},
			Reason:       "Bleeding-risk drugs can reactivate ulcer bleeding",
		},
		{
			Key:          "chronic_constipation",
			CodePrefixes: []string{"K590"},
			AvoidEffects: []vocab.Tag{vocab.Constipating, vocab.Anticholinergic},
			Reason:       "Constipating and anticholinergic drugs risk impaction and ileus",
		},
		{
			Key:          "urinary_retention",
			CodePrefixes: []string{"R33", "N40"},
			AvoidEffects: []vocab.Tag{vocab.Anticholinergic, vocab.Opioid},
			Reason:       "Anticholinergics and opioids precipitate acute retention",
		},
		{
			Key:          "glaucoma",
			CodePrefixes: []string{"H40"},
			AvoidEffects: []vocab.Tag{vocab.Anticholinergic},
			Reason:       "Anticholinergics can trigger acute angle-closure crisis",
		},
		{
			Key:          "osteoporosis",
			CodePrefixes: []string{"M80", "M81"},
			AvoidEffects: []vocab.Tag{vocab.FallRisk, vocab.Sedating},
			Reason:       "Fall-risk drugs in osteoporosis carry high fracture consequence",
		},
		{
			Key:          "hypoglycemia_risk",
			CodePrefixes: []string{"E160", "E161", "E162"},
			AvoidEffects: []vocab.Tag{vocab.Hypoglycemic},
			Reason:       "Documented hypoglycemia episodes contraindicate tight hypoglycemic therapy",
		},
	}
}
