package engine

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrx-safety-engine/internal/conditions"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/rules"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// fakeModule is a scriptable rule module for orchestration tests.
type fakeModule struct {
	name     string
	codes    []string
	eligible bool
	output   *domain.ModuleOutput
	err      error
	panics   bool
}

func (f *fakeModule) Name() string                         { return f.name }
func (f *fakeModule) AlertCodes() []string                 { return f.codes }
func (f *fakeModule) Eligible(p *domain.PatientState) bool { return f.eligible }
func (f *fakeModule) Evaluate(p *domain.PatientState) (*domain.ModuleOutput, error) {
	if f.panics {
		panic("scripted failure")
	}
	return f.output, f.err
}

func alertModule(name, code string, alerts ...domain.Alert) *fakeModule {
	return &fakeModule{
		name:     name,
		codes:    []string{code},
		eligible: true,
		output:   &domain.ModuleOutput{Applies: true, Alerts: alerts},
	}
}

func newFullEngine(t *testing.T) *Engine {
	t.Helper()
	log := testLogger()
	drugs, err := drugbank.New(drugbank.DefaultTable(), log, nil, nil)
	require.NoError(t, err)
	classifier, err := conditions.NewClassifier(conditions.DefaultGroupers(), log)
	require.NoError(t, err)

	e, err := New(log, registry.Default(),
		rules.NewRenalDosingModule(drugs, log),
		rules.NewDrugConditionModule(drugs, classifier, log),
		rules.NewDrugDrugModule(drugs, log),
		rules.NewACBBurdenModule(drugs, log),
		rules.NewCNSPolypharmacyModule(drugs, log),
		rules.NewToxidromeModule(drugs, log),
	)
	require.NoError(t, err)
	return e
}

func TestNewRejectsDuplicateModules(t *testing.T) {
	_, err := New(testLogger(), registry.Default(),
		alertModule("dup", registry.CodeACBHighBurden),
		alertModule("dup", registry.CodeCNSPolypharmacy),
	)
	assert.Error(t, err)
}

func TestNewRejectsUnregisteredCodes(t *testing.T) {
	_, err := New(testLogger(), registry.Default(),
		alertModule("rogue", "NOT_A_CODE"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAlertCode)
}

func TestEvaluateInvalidInput(t *testing.T) {
	e := newFullEngine(t)

	result := e.Evaluate(&domain.PatientState{Age: -4})

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, registry.CodeInvalidInput, result.Alerts[0].Code)
	assert.Equal(t, domain.SeverityCritical, result.Alerts[0].Severity)
	assert.True(t, result.HasBlockingAlerts)
	assert.Empty(t, result.ModuleRuns, "no module runs on rejected input")
}

func TestEvaluateCleanPatient(t *testing.T) {
	e := newFullEngine(t)

	result := e.Evaluate(&domain.PatientState{
		Age:         45,
		Medications: []domain.Medication{{Name: "lisinopril"}},
	})

	assert.Empty(t, result.Alerts)
	assert.Equal(t, 0, result.AlertCount)
	assert.False(t, result.HasBlockingAlerts)
}

func TestEvaluateIdempotent(t *testing.T) {
	e := newFullEngine(t)
	egfr := 25.0
	patient := &domain.PatientState{
		Age:            78,
		EGFR:           &egfr,
		Medications:    []domain.Medication{{Name: "metformin"}, {Name: "amitriptyline"}, {Name: "oxycodone"}},
		DiagnosisCodes: []string{"G311"},
	}

	first := e.Evaluate(patient)
	second := e.Evaluate(patient)

	// Everything except run identifiers and timings must be identical.
	require.Equal(t, len(first.Alerts), len(second.Alerts))
	for i := range first.Alerts {
		assert.Equal(t, first.Alerts[i], second.Alerts[i])
	}
	assert.Equal(t, first.AlertCount, second.AlertCount)
	assert.Equal(t, first.CriticalCount, second.CriticalCount)
	assert.NotEqual(t, first.EvaluationID, second.EvaluationID)
}

func TestEvaluateRenalScenario(t *testing.T) {
	e := newFullEngine(t)
	egfr := 25.0

	result := e.Evaluate(&domain.PatientState{
		Age:         70,
		EGFR:        &egfr,
		Medications: []domain.Medication{{Name: "metformin"}},
	})

	require.GreaterOrEqual(t, result.AlertCount, 1)
	top := result.Alerts[0]
	assert.Equal(t, registry.CodeRenalContraindication, top.Code)
	assert.Equal(t, domain.SeverityCritical, top.Severity)
	for _, a := range result.Alerts[1:] {
		assert.LessOrEqual(t, top.Severity.Rank(), a.Severity.Rank(),
			"nothing may sort above the renal contraindication")
	}
	assert.True(t, result.HasBlockingAlerts)
}

func TestEvaluateACBScenario(t *testing.T) {
	e := newFullEngine(t)

	result := e.Evaluate(&domain.PatientState{
		Age: 78,
		Medications: []domain.Medication{
			{Name: "amitriptyline"}, {Name: "diphenhydramine"}, {Name: "oxybutynin"},
		},
	})

	var burden *domain.Alert
	for i := range result.Alerts {
		if result.Alerts[i].Code == registry.CodeACBHighBurden {
			burden = &result.Alerts[i]
		}
	}
	require.NotNil(t, burden)
	assert.Equal(t, 9, burden.Extras["acb_score"])
}

func TestEvaluateModuleFailureIsolated(t *testing.T) {
	working := alertModule("working", registry.CodeACBHighBurden, domain.Alert{
		Code:     registry.CodeACBHighBurden,
		Severity: domain.SeverityHigh,
		Message:  "burden",
		Source:   "working",
	})
	failing := &fakeModule{
		name:     "failing",
		codes:    []string{registry.CodeCNSPolypharmacy},
		eligible: true,
		err:      errors.New("knowledge base unavailable"),
	}

	e, err := New(testLogger(), registry.Default(), working, failing)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})

	require.Len(t, result.Alerts, 2)
	var system *domain.Alert
	for i := range result.Alerts {
		if result.Alerts[i].Code == registry.CodeSystemFunctionError {
			system = &result.Alerts[i]
		}
	}
	require.NotNil(t, system, "failed module must surface a system alert")
	assert.Equal(t, domain.SeverityHigh, system.Severity)
	assert.Contains(t, system.Message, "failing")

	var failedRun *domain.ModuleRun
	for i := range result.ModuleRuns {
		if result.ModuleRuns[i].Module == "failing" {
			failedRun = &result.ModuleRuns[i]
		}
	}
	require.NotNil(t, failedRun)
	assert.True(t, failedRun.Failed)
}

func TestEvaluatePanicIsolated(t *testing.T) {
	panicking := &fakeModule{
		name:     "panicking",
		codes:    []string{registry.CodeCNSPolypharmacy},
		eligible: true,
		panics:   true,
	}

	e, err := New(testLogger(), registry.Default(), panicking)
	require.NoError(t, err)

	var result *domain.EvaluationResult
	assert.NotPanics(t, func() {
		result = e.Evaluate(&domain.PatientState{Age: 70})
	})

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, registry.CodeSystemFunctionError, result.Alerts[0].Code)
	assert.Contains(t, result.Alerts[0].Reason, "panic")
}

func TestEvaluateSeverityOrdering(t *testing.T) {
	moderate := alertModule("mod_moderate", registry.CodeRenalDoseAdjust, domain.Alert{
		Code: registry.CodeRenalDoseAdjust, Severity: domain.SeverityModerate, Drug: "digoxin", Source: "mod_moderate",
	})
	critical := alertModule("mod_critical", registry.CodeRenalContraindication, domain.Alert{
		Code: registry.CodeRenalContraindication, Severity: domain.SeverityCritical, Drug: "metformin", Source: "mod_critical",
	})
	info := alertModule("mod_info", registry.CodeToxidromeSuggested, domain.Alert{
		Code: registry.CodeToxidromeSuggested, Severity: domain.SeverityInfo, Source: "mod_info",
	})

	e, err := New(testLogger(), registry.Default(), moderate, critical, info)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})

	require.Len(t, result.Alerts, 3)
	assert.Equal(t, domain.SeverityCritical, result.Alerts[0].Severity)
	assert.Equal(t, domain.SeverityModerate, result.Alerts[1].Severity)
	assert.Equal(t, domain.SeverityInfo, result.Alerts[2].Severity)
}

func TestDedupeLowerRankWins(t *testing.T) {
	a := alertModule("mod_a", registry.CodeDrugConditionConflict, domain.Alert{
		Code: registry.CodeDrugConditionConflict, Severity: domain.SeverityModerate, Drug: "ibuprofen", Source: "mod_a",
	})
	b := alertModule("mod_b", registry.CodeDrugConditionConflict, domain.Alert{
		Code: registry.CodeDrugConditionConflict, Severity: domain.SeverityCritical, Drug: "Ibuprofen", Source: "mod_b",
	})

	e, err := New(testLogger(), registry.Default(), a, b)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.SeverityCritical, result.Alerts[0].Severity)
	assert.Equal(t, "mod_a,mod_b", result.Alerts[0].Source)
}

func TestDedupeEqualRankConcatenatesSources(t *testing.T) {
	a := alertModule("mod_a", registry.CodeDrugConditionConflict, domain.Alert{
		Code: registry.CodeDrugConditionConflict, Severity: domain.SeverityHigh, Drug: "ibuprofen",
		Message: "first message", Source: "mod_a",
	})
	b := alertModule("mod_b", registry.CodeDrugConditionConflict, domain.Alert{
		Code: registry.CodeDrugConditionConflict, Severity: domain.SeverityHigh, Drug: "ibuprofen",
		Message: "second message", Source: "mod_b",
	})

	e, err := New(testLogger(), registry.Default(), a, b)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "first message", result.Alerts[0].Message, "first-seen alert is kept")
	assert.Equal(t, "mod_a,mod_b", result.Alerts[0].Source)
}

func TestDedupeDistinctDrugSetsKeptApart(t *testing.T) {
	a := alertModule("mod_a", registry.CodeDrugDrugInteraction, domain.Alert{
		Code: registry.CodeDrugDrugInteraction, Severity: domain.SeverityHigh,
		DrugsInvolved: []string{"sertraline", "tramadol"}, Source: "mod_a",
	})
	b := alertModule("mod_b", registry.CodeDrugDrugInteraction, domain.Alert{
		Code: registry.CodeDrugDrugInteraction, Severity: domain.SeverityHigh,
		DrugsInvolved: []string{"citalopram", "amiodarone"}, Source: "mod_b",
	})

	e, err := New(testLogger(), registry.Default(), a, b)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})
	assert.Len(t, result.Alerts, 2, "same code with different drug sets must not collapse")
}

func TestDedupeDrugSetOrderInsensitive(t *testing.T) {
	a := alertModule("mod_a", registry.CodeDrugDrugInteraction, domain.Alert{
		Code: registry.CodeDrugDrugInteraction, Severity: domain.SeverityHigh,
		DrugsInvolved: []string{"tramadol", "sertraline"}, Source: "mod_a",
	})
	b := alertModule("mod_b", registry.CodeDrugDrugInteraction, domain.Alert{
		Code: registry.CodeDrugDrugInteraction, Severity: domain.SeverityHigh,
		DrugsInvolved: []string{"sertraline", "tramadol"}, Source: "mod_b",
	})

	e, err := New(testLogger(), registry.Default(), a, b)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "mod_a,mod_b", result.Alerts[0].Source)
}

func TestIneligibleModuleSkipped(t *testing.T) {
	skipped := &fakeModule{
		name:     "skipped",
		codes:    []string{registry.CodeCNSPolypharmacy},
		eligible: false,
	}

	e, err := New(testLogger(), registry.Default(), skipped)
	require.NoError(t, err)

	result := e.Evaluate(&domain.PatientState{Age: 70})

	require.Len(t, result.ModuleRuns, 1)
	assert.False(t, result.ModuleRuns[0].Eligible)
	assert.Empty(t, result.Alerts)
}
