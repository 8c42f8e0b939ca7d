package unknowns

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// recordTimeout bounds a single advisory write so a slow log can never
// hold up an evaluation for long.
const recordTimeout = 2 * time.Second

// Recorder implements the drugbank notifier contract: it deduplicates
// (name, module) pairs for the process lifetime and persists each pair
// to the store at most once per process, serializing writes behind one
// mutex. Writes are best effort: a failed write is logged and dropped.
type Recorder struct {
	store Store
	log   *logrus.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRecorder creates a recorder on top of a store. A nil store yields
// a recorder that only deduplicates in memory.
func NewRecorder(store Store, log *logrus.Logger) *Recorder {
	return &Recorder{store: store, log: log, seen: make(map[string]struct{})}
}

// RecordUnknownDrug registers an unresolved drug name from a module.
// Safe for concurrent use from multiple evaluations.
func (r *Recorder) RecordUnknownDrug(drugName, module string) {
	name := strings.ToLower(strings.TrimSpace(drugName))
	if name == "" {
		return
	}
	key := name + "\x00" + module

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}

	r.log.WithFields(logrus.Fields{
		"drug_name": name,
		"module":    module,
	}).Info("Unknown drug name recorded for vocabulary review")

	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.Record(ctx, name, module); err != nil {
		r.log.WithError(err).WithField("drug_name", name).Warn("Failed to persist unknown drug; entry dropped")
	}
}

// SeenCount returns the number of distinct pairs observed this process.
func (r *Recorder) SeenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
