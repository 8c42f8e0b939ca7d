// Package unknowns records drug names the knowledge base could not
// resolve, for offline vocabulary growth. Recording is advisory
// instrumentation only: it never affects the current evaluation's
// alerts.
package unknowns

import (
	"context"
	"io"
	"time"
)

// Entry is one unresolved drug name, attributed to the rule module
// that asked for it. Deduplicated per (drug_name, module) pair.
type Entry struct {
	ID        int64     `json:"id,omitempty"`
	DrugName  string    `json:"drug_name"`
	Module    string    `json:"module"`
	SeenCount int64     `json:"seen_count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store defines the persistence interface for the unknown-drug log.
type Store interface {
	// Record appends the (drugName, module) pair if it has not been
	// persisted before, otherwise bumps its seen count.
	Record(ctx context.Context, drugName, module string) error

	// List returns log entries with pagination, most recent first.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of distinct pairs logged.
	Count(ctx context.Context) (int64, error)

	// ExportJSON exports the full log to a JSON writer, for the
	// periodic promotion of unresolved names into the drug table.
	ExportJSON(ctx context.Context, w io.Writer) error

	// Close releases store resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}
