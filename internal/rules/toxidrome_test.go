package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/registry"
)

func TestToxidromeEligibility(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	assert.False(t, m.Eligible(&domain.PatientState{Medications: meds("morphine")}))
	assert.True(t, m.Eligible(&domain.PatientState{Symptoms: []string{"tremor"}}))
}

func TestToxidromeSuggestionWithoutMedication(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	out, err := m.Evaluate(&domain.PatientState{
		Symptoms: []string{"dry mouth", "urinary retention", "blurred vision"},
	})
	require.NoError(t, err)
	require.True(t, out.Applies)

	alerts := alertsByCode(out, registry.CodeToxidromeSuggested)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, domain.SeverityInfo, a.Severity, "no implicated medication keeps the suggestion informational")
	assert.Equal(t, "anticholinergic", a.Extras["toxidrome"])
	assert.Empty(t, a.DrugsInvolved)
}

func TestToxidromeUpgradedByMedication(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	out, err := m.Evaluate(&domain.PatientState{
		Symptoms:    []string{"dry mouth", "confusion"},
		Medications: meds("amitriptyline"),
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeToxidromeSuggested)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityModerate, alerts[0].Severity)
	assert.Equal(t, "amitriptyline", alerts[0].Drug)
}

func TestToxidromeBelowMinMatches(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	out, err := m.Evaluate(&domain.PatientState{
		Symptoms: []string{"dry mouth"},
	})
	require.NoError(t, err)
	assert.True(t, out.Applies)
	assert.Empty(t, out.Alerts)
}

func TestToxidromeOrderedByMatchFraction(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	// 2/4 opioid symptoms beats 2/7 anticholinergic symptoms.
	out, err := m.Evaluate(&domain.PatientState{
		Symptoms: []string{"miosis", "respiratory depression", "dry mouth", "flushing"},
	})
	require.NoError(t, err)

	alerts := alertsByCode(out, registry.CodeToxidromeSuggested)
	require.Len(t, alerts, 2)
	assert.Equal(t, "opioid", alerts[0].Extras["toxidrome"])
	assert.Equal(t, "anticholinergic", alerts[1].Extras["toxidrome"])
}

func TestToxidromeSymptomNormalization(t *testing.T) {
	m := NewToxidromeModule(newTestDrugs(t), testLogger())

	out, err := m.Evaluate(&domain.PatientState{
		Symptoms: []string{"  DRY   MOUTH ", "Urinary Retention"},
	})
	require.NoError(t, err)
	require.Len(t, alertsByCode(out, registry.CodeToxidromeSuggested), 1)
}
