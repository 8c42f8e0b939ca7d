// Package drugbank maps free-text drug names onto canonical
// pharmacological effect tags and anticholinergic burden (ACB) scores.
//
// Resolution is deterministic: an ordered chain of strategies (exact,
// dose-suffix-stripped, substring in table-declaration order) runs
// until one returns a definite match. Unresolvable names yield an empty
// effect set and ACB 0 and are reported through the unknown-drug
// notifier; they are never an error.
package drugbank

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/vocab"
)

// Record is one drug-effect table entry, keyed by canonical lowercase
// drug name. Static, loaded once, read-only afterwards.
type Record struct {
	Name    string
	Effects []vocab.Tag
	// ACB is the anticholinergic burden contribution, 0..3.
	ACB int

	key string // lowercase of Name, computed at load
}

// Notifier receives unknown-drug notifications as a side channel.
// Implementations must never influence the evaluation result.
type Notifier interface {
	RecordUnknownDrug(drugName, module string)
}

// resolutionCacheSize bounds the memo of resolved names. Misses are
// cached too: the substring scan is the hot path of an evaluation.
const resolutionCacheSize = 2048

// Store is the in-memory drug knowledge base.
type Store struct {
	records   []Record
	byName    map[string]int
	resolvers []resolver
	cache     *lru.Cache[string, int]
	notifier  Notifier
	log       *logrus.Logger
}

// missIndex marks a cached resolution miss.
const missIndex = -1

// New builds a Store from a record table. Effect tags are normalized to
// canonical form exactly once here; a tag that does not normalize into
// the vocabulary is a table defect and fails construction. The reporter
// may be nil.
func New(records []Record, log *logrus.Logger, notifier Notifier, reporter *vocab.Reporter) (*Store, error) {
	cache, err := lru.New[string, int](resolutionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating resolution cache: %w", err)
	}

	s := &Store{
		records:   make([]Record, len(records)),
		byName:    make(map[string]int, len(records)),
		resolvers: []resolver{exactResolver{}, suffixResolver{}, substringResolver{}},
		cache:     cache,
		notifier:  notifier,
		log:       log,
	}

	for i, rec := range records {
		key := strings.ToLower(strings.TrimSpace(rec.Name))
		if key == "" {
			return nil, fmt.Errorf("drug table entry %d: empty name", i)
		}
		if _, dup := s.byName[key]; dup {
			return nil, fmt.Errorf("drug table entry %d: duplicate name %q", i, rec.Name)
		}
		if rec.ACB < 0 || rec.ACB > 3 {
			return nil, fmt.Errorf("drug table entry %q: ACB score %d out of range 0..3", rec.Name, rec.ACB)
		}

		effects := make([]vocab.Tag, 0, len(rec.Effects))
		seen := make(map[vocab.Tag]struct{}, len(rec.Effects))
		for _, raw := range rec.Effects {
			reporter.Observe(string(raw))
			tag := vocab.Normalize(string(raw))
			if !vocab.IsValid(tag) {
				return nil, fmt.Errorf("drug table entry %q: unknown effect tag %q", rec.Name, raw)
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			effects = append(effects, tag)
		}

		s.records[i] = Record{Name: rec.Name, Effects: effects, ACB: rec.ACB, key: key}
		s.byName[key] = i
	}

	log.WithField("drug_count", len(s.records)).Info("Drug knowledge base loaded")
	return s, nil
}

// Resolve runs the ranked strategy chain for a free-text name and
// returns the matched record. The boolean is false on a miss.
func (s *Store) Resolve(name string) (Record, bool) {
	norm := strings.ToLower(strings.TrimSpace(name))
	if norm == "" {
		return Record{}, false
	}

	if idx, ok := s.cache.Get(norm); ok {
		if idx == missIndex {
			return Record{}, false
		}
		return s.records[idx], true
	}

	for _, r := range s.resolvers {
		if idx, ok := r.resolve(s, norm); ok {
			if r.name() != "exact" {
				s.log.WithFields(logrus.Fields{
					"input":    name,
					"resolved": s.records[idx].Name,
					"strategy": r.name(),
				}).Debug("Drug name resolved by fallback strategy")
			}
			s.cache.Add(norm, idx)
			return s.records[idx], true
		}
	}

	s.cache.Add(norm, missIndex)
	return Record{}, false
}

// EffectsOf returns the canonical effect set for a drug name, empty on
// a miss. The module name attributes unknown-drug notifications.
func (s *Store) EffectsOf(name, module string) []vocab.Tag {
	rec, ok := s.Resolve(name)
	if !ok {
		s.notifyUnknown(name, module)
		return nil
	}
	return rec.Effects
}

// ACBOf returns the anticholinergic burden score for a drug name, 0 on
// a miss.
func (s *Store) ACBOf(name, module string) int {
	rec, ok := s.Resolve(name)
	if !ok {
		s.notifyUnknown(name, module)
		return 0
	}
	return rec.ACB
}

// HasEffect reports whether the drug resolves to a record carrying the
// given canonical tag.
func (s *Store) HasEffect(name, module string, tag vocab.Tag) bool {
	for _, t := range s.EffectsOf(name, module) {
		if t == tag {
			return true
		}
	}
	return false
}

// Len returns the number of table entries.
func (s *Store) Len() int {
	return len(s.records)
}

func (s *Store) notifyUnknown(name, module string) {
	if s.notifier == nil || strings.TrimSpace(name) == "" {
		return
	}
	s.notifier.RecordUnknownDrug(name, module)
}
