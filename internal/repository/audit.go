// Package repository persists evaluation audit records to Postgres.
// Patient snapshots are stored only as a SHA-256 hash; the audit trail
// records what was decided, not who it was decided about.
package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/medrx-safety-engine/internal/domain"
)

// EvaluationRecord is one audit row.
type EvaluationRecord struct {
	ID                 string
	PatientHash        string
	MedicationCount    int
	AlertCount         int
	BlockingAlertCount int
	TopSeverity        string
	ModuleFailures     int
	DurationMS         float64
	Result             []byte
	CreatedAt          time.Time
}

// AuditRepository implements the audit sink on Postgres. Writes go
// through a circuit breaker so a degraded database cannot slow the
// evaluation path: once the breaker opens, saves fail fast until the
// database recovers.
type AuditRepository struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewAuditRepository creates an audit repository over an open database.
func NewAuditRepository(db *sql.DB, logger *logrus.Logger) *AuditRepository {
	settings := gobreaker.Settings{
		Name:        "audit-db",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &AuditRepository{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     logger,
	}
}

// SaveEvaluation writes one audit record for a completed evaluation.
func (r *AuditRepository) SaveEvaluation(ctx context.Context, p *domain.PatientState, result *domain.EvaluationResult) error {
	record, err := buildRecord(p, result)
	if err != nil {
		return fmt.Errorf("building audit record: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.insert(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("saving evaluation %s: %w", record.ID, err)
	}

	r.log.WithFields(logrus.Fields{
		"evaluation_id": record.ID,
		"alert_count":   record.AlertCount,
	}).Debug("Evaluation audit record saved")
	return nil
}

func (r *AuditRepository) insert(ctx context.Context, rec *EvaluationRecord) error {
	const query = `
		INSERT INTO evaluations (
			id, patient_hash, medication_count, alert_count,
			blocking_alert_count, top_severity, module_failures,
			duration_ms, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.PatientHash, rec.MedicationCount, rec.AlertCount,
		rec.BlockingAlertCount, rec.TopSeverity, rec.ModuleFailures,
		rec.DurationMS, rec.Result, rec.CreatedAt,
	)
	return err
}

// GetEvaluation retrieves one audit record by evaluation ID.
func (r *AuditRepository) GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error) {
	const query = `
		SELECT id, patient_hash, medication_count, alert_count,
		       blocking_alert_count, top_severity, module_failures,
		       duration_ms, result, created_at
		FROM evaluations WHERE id = $1`

	rec := &EvaluationRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.PatientHash, &rec.MedicationCount, &rec.AlertCount,
		&rec.BlockingAlertCount, &rec.TopSeverity, &rec.ModuleFailures,
		&rec.DurationMS, &rec.Result, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evaluation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying evaluation %s: %w", id, err)
	}
	return rec, nil
}

func buildRecord(p *domain.PatientState, result *domain.EvaluationResult) (*EvaluationRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}

	failures := 0
	for i := range result.ModuleRuns {
		if result.ModuleRuns[i].Failed {
			failures++
		}
	}

	top := ""
	if len(result.Alerts) > 0 {
		top = result.Alerts[0].Severity.String()
	}

	return &EvaluationRecord{
		ID:                 result.EvaluationID,
		PatientHash:        HashPatient(p),
		MedicationCount:    len(p.Medications),
		AlertCount:         result.AlertCount,
		BlockingAlertCount: result.CriticalCount + result.HighCount,
		TopSeverity:        top,
		ModuleFailures:     failures,
		DurationMS:         float64(result.Elapsed) / float64(time.Millisecond),
		Result:             payload,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// HashPatient returns the SHA-256 hex digest of the canonical JSON
// form of a patient snapshot. Also used as the result cache key.
func HashPatient(p *domain.PatientState) string {
	payload, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
