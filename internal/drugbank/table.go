package drugbank

import "github.com/medrx-safety-engine/internal/vocab"

// DefaultTable is the built-in drug-effect table. Declaration order is
// load-bearing: the substring resolver scans entries in this order and
// the first match wins. The owning team periodically promotes names
// from the unknown-drug log into this table.
func DefaultTable() []Record {
	return []Record{
		// Anticholinergics / antihistamines
		{Name: "diphenhydramine", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.FallRisk}, ACB: 3},
		{Name: "hydroxyzine", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating}, ACB: 3},
		{Name: "chlorpheniramine", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating}, ACB: 3},
		{Name: "promethazine", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.QTProlonging, vocab.DopamineBlocking}, ACB: 3},
		{Name: "oxybutynin", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Constipating}, ACB: 3},
		{Name: "tolterodine", Effects: []vocab.Tag{vocab.Anticholinergic}, ACB: 3},

		// Tricyclics
		{Name: "amitriptyline", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.QTProlonging, vocab.Serotonergic, vocab.FallRisk}, ACB: 3},
		{Name: "nortriptyline", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.QTProlonging, vocab.Serotonergic}, ACB: 3},

		// SSRIs / SNRIs
		{Name: "sertraline", Effects: []vocab.Tag{vocab.Serotonergic, vocab.BleedingRisk}, ACB: 0},
		{Name: "fluoxetine", Effects: []vocab.Tag{vocab.Serotonergic, vocab.BleedingRisk}, ACB: 0},
		{Name: "citalopram", Effects: []vocab.Tag{vocab.Serotonergic, vocab.QTProlonging, vocab.BleedingRisk}, ACB: 1},
		{Name: "escitalopram", Effects: []vocab.Tag{vocab.Serotonergic, vocab.QTProlonging}, ACB: 1},
		{Name: "paroxetine", Effects: []vocab.Tag{vocab.Serotonergic, vocab.Anticholinergic, vocab.BleedingRisk}, ACB: 3},
		{Name: "venlafaxine", Effects: []vocab.Tag{vocab.Serotonergic}, ACB: 0},
		{Name: "duloxetine", Effects: []vocab.Tag{vocab.Serotonergic}, ACB: 0},
		{Name: "trazodone", Effects: []vocab.Tag{vocab.Serotonergic, vocab.Sedating, vocab.Hypotensive, vocab.FallRisk}, ACB: 1},

		// Opioids
		{Name: "morphine", Effects: []vocab.Tag{vocab.Opioid, vocab.Sedating, vocab.Constipating, vocab.FallRisk}, ACB: 0},
		{Name: "oxycodone", Effects: []vocab.Tag{vocab.Opioid, vocab.Sedating, vocab.Constipating, vocab.FallRisk}, ACB: 0},
		{Name: "hydromorphone", Effects: []vocab.Tag{vocab.Opioid, vocab.Sedating, vocab.Constipating}, ACB: 0},
		{Name: "tramadol", Effects: []vocab.Tag{vocab.Opioid, vocab.Serotonergic, vocab.SeizureLowering, vocab.FallRisk}, ACB: 0},
		{Name: "fentanyl", Effects: []vocab.Tag{vocab.Opioid, vocab.Sedating}, ACB: 0},
		{Name: "codeine", Effects: []vocab.Tag{vocab.Opioid, vocab.Sedating, vocab.Constipating}, ACB: 1},

		// Benzodiazepines / hypnotics
		{Name: "diazepam", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 1},
		{Name: "lorazepam", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 1},
		{Name: "alprazolam", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 1},
		{Name: "clonazepam", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 1},
		{Name: "zolpidem", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 0},
		{Name: "zopiclone", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 0},

		// Antipsychotics
		{Name: "haloperidol", Effects: []vocab.Tag{vocab.QTProlonging, vocab.DopamineBlocking, vocab.Sedating}, ACB: 1},
		{Name: "quetiapine", Effects: []vocab.Tag{vocab.Sedating, vocab.Anticholinergic, vocab.Hypotensive, vocab.QTProlonging, vocab.DopamineBlocking}, ACB: 3},
		{Name: "olanzapine", Effects: []vocab.Tag{vocab.Sedating, vocab.Anticholinergic, vocab.DopamineBlocking}, ACB: 3},
		{Name: "risperidone", Effects: []vocab.Tag{vocab.DopamineBlocking, vocab.Hypotensive, vocab.QTProlonging}, ACB: 1},
		{Name: "metoclopramide", Effects: []vocab.Tag{vocab.DopamineBlocking, vocab.QTProlonging}, ACB: 1},

		// Cardiovascular
		{Name: "amiodarone", Effects: []vocab.Tag{vocab.QTProlonging, vocab.Bradycardic}, ACB: 0},
		{Name: "sotalol", Effects: []vocab.Tag{vocab.QTProlonging, vocab.Bradycardic, vocab.Hypotensive}, ACB: 0},
		{Name: "digoxin", Effects: []vocab.Tag{vocab.Bradycardic}, ACB: 0},
		{Name: "metoprolol", Effects: []vocab.Tag{vocab.Bradycardic, vocab.Hypotensive}, ACB: 0},
		{Name: "lisinopril", Effects: []vocab.Tag{vocab.Hypotensive}, ACB: 0},
		{Name: "furosemide", Effects: []vocab.Tag{vocab.Hypotensive, vocab.FallRisk}, ACB: 1},
		{Name: "spironolactone", Effects: []vocab.Tag{vocab.Hypotensive}, ACB: 0},
		{Name: "doxazosin", Effects: []vocab.Tag{vocab.Hypotensive, vocab.FallRisk}, ACB: 0},

		// Anticoagulants / antiplatelets
		{Name: "warfarin", Effects: []vocab.Tag{vocab.BleedingRisk}, ACB: 0},
		{Name: "apixaban", Effects: []vocab.Tag{vocab.BleedingRisk}, ACB: 0},
		{Name: "rivaroxaban", Effects: []vocab.Tag{vocab.BleedingRisk}, ACB: 0},
		{Name: "aspirin", Effects: []vocab.Tag{vocab.BleedingRisk}, ACB: 0},
		{Name: "clopidogrel", Effects: []vocab.Tag{vocab.BleedingRisk}, ACB: 0},

		// NSAIDs
		{Name: "ibuprofen", Effects: []vocab.Tag{vocab.Nephrotoxic, vocab.FluidRetaining, vocab.BleedingRisk}, ACB: 0},
		{Name: "naproxen", Effects: []vocab.Tag{vocab.Nephrotoxic, vocab.FluidRetaining, vocab.BleedingRisk}, ACB: 0},
		{Name: "diclofenac", Effects: []vocab.Tag{vocab.Nephrotoxic, vocab.FluidRetaining, vocab.BleedingRisk}, ACB: 0},
		{Name: "celecoxib", Effects: []vocab.Tag{vocab.Nephrotoxic, vocab.FluidRetaining}, ACB: 0},

		// Antimicrobials
		{Name: "ciprofloxacin", Effects: []vocab.Tag{vocab.QTProlonging, vocab.SeizureLowering}, ACB: 0},
		{Name: "clarithromycin", Effects: []vocab.Tag{vocab.QTProlonging}, ACB: 0},
		{Name: "gentamicin", Effects: []vocab.Tag{vocab.Nephrotoxic}, ACB: 0},
		{Name: "vancomycin", Effects: []vocab.Tag{vocab.Nephrotoxic}, ACB: 0},
		{Name: "nitrofurantoin", Effects: []vocab.Tag{}, ACB: 0},

		// Diabetes
		{Name: "metformin", Effects: []vocab.Tag{}, ACB: 0},
		{Name: "glyburide", Effects: []vocab.Tag{vocab.Hypoglycemic}, ACB: 0},
		{Name: "glipizide", Effects: []vocab.Tag{vocab.Hypoglycemic}, ACB: 0},
		{Name: "insulin", Effects: []vocab.Tag{vocab.Hypoglycemic}, ACB: 0},

		// Misc
		{Name: "ondansetron", Effects: []vocab.Tag{vocab.QTProlonging, vocab.Constipating}, ACB: 0},
		{Name: "carbamazepine", Effects: []vocab.Tag{vocab.Sedating}, ACB: 1},
		{Name: "gabapentin", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 0},
		{Name: "pregabalin", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 0},
		{Name: "baclofen", Effects: []vocab.Tag{vocab.Sedating, vocab.FallRisk}, ACB: 0},
		{Name: "cyclobenzaprine", Effects: []vocab.Tag{vocab.Anticholinergic, vocab.Sedating, vocab.FallRisk}, ACB: 2},
		{Name: "prednisone", Effects: []vocab.Tag{vocab.FluidRetaining}, ACB: 0},
		{Name: "omeprazole", Effects: []vocab.Tag{}, ACB: 0},
	}
}
