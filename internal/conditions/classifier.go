// Package conditions derives canonical clinical condition keys from
// coded diagnoses via hierarchical ICD-style code-prefix matching, and
// maps each condition onto the pharmacological effects it
// contraindicates.
package conditions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/vocab"
)

// minPrefixLen is the shortest prefix a grouper may declare and the
// shortest prefix probed during derivation.
const minPrefixLen = 3

// Grouper binds a condition key to the diagnosis-code prefixes that
// activate it and the drug effects it contraindicates. Prefixes are not
// required to be disjoint across groupers: one code may activate
// several unrelated conditions.
type Grouper struct {
	Key          string
	CodePrefixes []string
	AvoidEffects []vocab.Tag
	// ExcludeDrugs names drugs exempt from this condition's avoid list,
	// matched case-insensitively by substring.
	ExcludeDrugs []string
	Reason       string
	Note         string
}

// Profile is the contraindication view over a set of diagnosis codes.
type Profile struct {
	ConditionKeys []string
	AvoidEffects  []vocab.Tag
	ByCondition   map[string][]vocab.Tag
}

// Classifier holds the grouper table and the prefix index derived from
// it. Read-only after construction; no locking needed.
type Classifier struct {
	groupers map[string]Grouper
	// prefixIndex flattens every grouper's prefixes into one map so a
	// code lookup is O(1) amortized per probed prefix length.
	prefixIndex map[string][]string
	log         *logrus.Logger
}

// NewClassifier validates the grouper table and builds the prefix
// index. Prefix invariants (uppercase, dot-free, >=3 chars) are table
// defects when violated, so construction fails rather than matching
// incorrectly later.
func NewClassifier(groupers []Grouper, log *logrus.Logger) (*Classifier, error) {
	c := &Classifier{
		groupers:    make(map[string]Grouper, len(groupers)),
		prefixIndex: make(map[string][]string),
		log:         log,
	}

	for _, g := range groupers {
		if g.Key == "" {
			return nil, fmt.Errorf("condition grouper with empty key")
		}
		if _, dup := c.groupers[g.Key]; dup {
			return nil, fmt.Errorf("duplicate condition grouper %q", g.Key)
		}
		for i, tag := range g.AvoidEffects {
			norm := vocab.Normalize(string(tag))
			if !vocab.IsValid(norm) {
				return nil, fmt.Errorf("grouper %q: unknown avoid effect %q", g.Key, tag)
			}
			g.AvoidEffects[i] = norm
		}
		for _, p := range g.CodePrefixes {
			if len(p) < minPrefixLen {
				return nil, fmt.Errorf("grouper %q: prefix %q shorter than %d", g.Key, p, minPrefixLen)
			}
			if p != strings.ToUpper(p) || strings.Contains(p, ".") {
				return nil, fmt.Errorf("grouper %q: prefix %q must be uppercase and dot-free", g.Key, p)
			}
			c.prefixIndex[p] = append(c.prefixIndex[p], g.Key)
		}
		c.groupers[g.Key] = g
	}

	log.WithFields(logrus.Fields{
		"grouper_count": len(c.groupers),
		"prefix_count":  len(c.prefixIndex),
	}).Info("Condition classifier initialized")
	return c, nil
}

// NormalizeCode uppercases a diagnosis code and strips separators so
// "i50.32" probes the same index entries as "I5032".
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer(".", "", "-", "", " ", "").Replace(code)
}

// DeriveConditions maps diagnosis codes to the sorted set of condition
// keys they activate. For each normalized code every prefix length from
// len(code) down to 3 is probed; matches union across codes. Unmapped
// codes contribute nothing and are not an error.
func (c *Classifier) DeriveConditions(codes []string) []string {
	seen := make(map[string]struct{})
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if len(code) < minPrefixLen {
			continue
		}
		for l := len(code); l >= minPrefixLen; l-- {
			for _, key := range c.prefixIndex[code[:l]] {
				seen[key] = struct{}{}
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MergeLegacy folds legacy free-text condition strings into a derived
// key set. A legacy string counts only if its canonical spelling
// (lowercase, spaces to underscores) names a known grouper; anything
// else is a data-resolution miss and is dropped.
func (c *Classifier) MergeLegacy(derived []string, legacy []string) []string {
	seen := make(map[string]struct{}, len(derived))
	for _, k := range derived {
		seen[k] = struct{}{}
	}
	for _, raw := range legacy {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
		if _, ok := c.groupers[key]; !ok {
			continue
		}
		seen[key] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContraindicatedEffects derives conditions for the codes and returns
// the union of their avoid-effect sets plus the per-condition
// breakdown.
func (c *Classifier) ContraindicatedEffects(codes []string) *Profile {
	return c.ProfileFor(c.DeriveConditions(codes))
}

// ProfileFor builds the contraindication profile for an already-derived
// condition key set.
func (c *Classifier) ProfileFor(keys []string) *Profile {
	p := &Profile{
		ConditionKeys: keys,
		ByCondition:   make(map[string][]vocab.Tag, len(keys)),
	}

	union := make(map[vocab.Tag]struct{})
	for _, key := range keys {
		g, ok := c.groupers[key]
		if !ok {
			continue
		}
		p.ByCondition[key] = g.AvoidEffects
		for _, t := range g.AvoidEffects {
			union[t] = struct{}{}
		}
	}

	p.AvoidEffects = make([]vocab.Tag, 0, len(union))
	for t := range union {
		p.AvoidEffects = append(p.AvoidEffects, t)
	}
	sort.Slice(p.AvoidEffects, func(i, j int) bool { return p.AvoidEffects[i] < p.AvoidEffects[j] })
	return p
}

// Grouper returns the grouper for a condition key.
func (c *Classifier) Grouper(key string) (Grouper, bool) {
	g, ok := c.groupers[key]
	return g, ok
}

// ExcludesDrug reports whether the condition's exclusion list exempts
// the drug, using the case-insensitive substring check the avoid lists
// are authored against.
func (g Grouper) ExcludesDrug(drugName string) bool {
	name := strings.ToLower(drugName)
	for _, ex := range g.ExcludeDrugs {
		ex = strings.ToLower(ex)
		if ex == "" {
			continue
		}
		if strings.Contains(name, ex) || strings.Contains(ex, name) {
			return true
		}
	}
	return false
}
