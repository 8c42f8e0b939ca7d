package rules

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/medrx-safety-engine/internal/conditions"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestDrugs(t *testing.T) *drugbank.Store {
	t.Helper()
	s, err := drugbank.New(drugbank.DefaultTable(), testLogger(), nil, nil)
	require.NoError(t, err)
	return s
}

func newTestClassifier(t *testing.T) *conditions.Classifier {
	t.Helper()
	c, err := conditions.NewClassifier(conditions.DefaultGroupers(), testLogger())
	require.NoError(t, err)
	return c
}

func egfr(v float64) *float64 { return &v }

func meds(names ...string) []domain.Medication {
	out := make([]domain.Medication, len(names))
	for i, n := range names {
		out[i] = domain.Medication{Name: n}
	}
	return out
}

// alertsByCode groups an output's alerts for assertions.
func alertsByCode(out *domain.ModuleOutput, code string) []domain.Alert {
	var hits []domain.Alert
	for _, a := range out.Alerts {
		if a.Code == code {
			hits = append(hits, a)
		}
	}
	return hits
}
