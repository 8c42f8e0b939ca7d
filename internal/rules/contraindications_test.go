package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/registry"
)

func newDrugConditionModule(t *testing.T) *DrugConditionModule {
	t.Helper()
	return NewDrugConditionModule(newTestDrugs(t), newTestClassifier(t), testLogger())
}

func TestDrugConditionEligibility(t *testing.T) {
	m := newDrugConditionModule(t)

	tests := []struct {
		name     string
		patient  *domain.PatientState
		eligible bool
	}{
		{"meds and codes", &domain.PatientState{Medications: meds("ibuprofen"), DiagnosisCodes: []string{"I50"}}, true},
		{"meds and legacy conditions", &domain.PatientState{Medications: meds("ibuprofen"), Conditions: []string{"heart failure"}}, true},
		{"no conditions", &domain.PatientState{Medications: meds("ibuprofen")}, false},
		{"no meds", &domain.PatientState{DiagnosisCodes: []string{"I50"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eligible, m.Eligible(tt.patient))
		})
	}
}

func TestDrugConditionDementiaAnticholinergic(t *testing.T) {
	m := newDrugConditionModule(t)

	out, err := m.Evaluate(&domain.PatientState{
		Medications:    meds("amitriptyline"),
		DiagnosisCodes: []string{"G311"},
	})
	require.NoError(t, err)
	require.True(t, out.Applies)

	alerts := alertsByCode(out, registry.CodeDrugConditionConflict)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, domain.SeverityHigh, a.Severity)
	assert.Equal(t, "amitriptyline", a.Drug)
	assert.Equal(t, "dementia", a.Extras["condition_key"])
	assert.Equal(t, []string{"anticholinergic", "sedating"}, a.Extras["harmful_effects"])
}

func TestDrugConditionHeartFailureNSAID(t *testing.T) {
	m := newDrugConditionModule(t)

	out, err := m.Evaluate(&domain.PatientState{
		Medications:    meds("ibuprofen"),
		DiagnosisCodes: []string{"i50.32"},
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeDrugConditionConflict)
	require.Len(t, alerts, 1)
	assert.Equal(t, "heart_failure", alerts[0].Extras["condition_key"])
	assert.Equal(t, []string{"fluid_retaining"}, alerts[0].Extras["harmful_effects"])
}

func TestDrugConditionExclusionList(t *testing.T) {
	m := newDrugConditionModule(t)

	// Aspirin carries bleeding_risk, not nephrotoxicity, but the CKD
	// grouper also exempts it explicitly; ibuprofen is not exempt.
	out, err := m.Evaluate(&domain.PatientState{
		Medications:    meds("aspirin", "ibuprofen"),
		DiagnosisCodes: []string{"N184"},
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeDrugConditionConflict)
	require.Len(t, alerts, 1)
	assert.Equal(t, "ibuprofen", alerts[0].Drug)
}

func TestDrugConditionLegacyConditions(t *testing.T) {
	m := newDrugConditionModule(t)

	out, err := m.Evaluate(&domain.PatientState{
		Medications: meds("prednisone"),
		Conditions:  []string{"Heart Failure"},
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeDrugConditionConflict)
	require.Len(t, alerts, 1)
	assert.Equal(t, "heart_failure", alerts[0].Extras["condition_key"])
}

func TestDrugConditionOneAlertPerPair(t *testing.T) {
	m := newDrugConditionModule(t)

	// One drug conflicting with two conditions yields two records; the
	// orchestrator, not this module, decides about collapsing.
	out, err := m.Evaluate(&domain.PatientState{
		Medications:    meds("diphenhydramine"),
		DiagnosisCodes: []string{"G311", "H40"},
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeDrugConditionConflict)
	require.Len(t, alerts, 2)
	keys := []string{alerts[0].Extras["condition_key"].(string), alerts[1].Extras["condition_key"].(string)}
	assert.ElementsMatch(t, []string{"dementia", "glaucoma"}, keys)
}

func TestDrugConditionCleanPatient(t *testing.T) {
	m := newDrugConditionModule(t)

	out, err := m.Evaluate(&domain.PatientState{
		Medications:    meds("lisinopril"),
		DiagnosisCodes: []string{"G311"},
	})
	require.NoError(t, err)
	assert.True(t, out.Applies)
	assert.Empty(t, out.Alerts)
}
