// Package vocab defines the closed vocabulary of canonical
// pharmacological effect tags and the normalization rules that map
// legacy alias spellings onto it.
//
// Normalization is pure, idempotent, and total: any input maps to some
// lowercase tag, and inputs outside the vocabulary fail IsValid rather
// than raising an error. Alias deprecation telemetry goes through an
// injected Reporter so that observing an alias can never change an
// evaluation result.
package vocab

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Tag is a canonical pharmacological effect label.
type Tag string

const (
	Anticholinergic  Tag = "anticholinergic"
	Sedating         Tag = "sedating"
	QTProlonging     Tag = "qt_prolonging"
	Nephrotoxic      Tag = "nephrotoxic"
	Serotonergic     Tag = "serotonergic"
	Opioid           Tag = "opioid"
	FallRisk         Tag = "fall_risk"
	Hypoglycemic     Tag = "hypoglycemic"
	Hypotensive      Tag = "hypotensive"
	Bradycardic      Tag = "bradycardic"
	FluidRetaining   Tag = "fluid_retaining"
	DopamineBlocking Tag = "dopamine_blocking"
	SeizureLowering  Tag = "seizure_lowering"
	BleedingRisk     Tag = "bleeding_risk"
	Constipating     Tag = "constipating"
)

// canonical is the closed tag set. Tags produced anywhere in the system
// must be members of this set.
var canonical = map[Tag]struct{}{
	Anticholinergic:  {},
	Sedating:         {},
	QTProlonging:     {},
	Nephrotoxic:      {},
	Serotonergic:     {},
	Opioid:           {},
	FallRisk:         {},
	Hypoglycemic:     {},
	Hypotensive:      {},
	Bradycardic:      {},
	FluidRetaining:   {},
	DopamineBlocking: {},
	SeizureLowering:  {},
	BleedingRisk:     {},
	Constipating:     {},
}

// aliases maps legacy spellings, accepted at the boundary only, to
// canonical tags. Aliases are never stored internally.
var aliases = map[string]Tag{
	"ach":                        Anticholinergic,
	"anti-cholinergic":           Anticholinergic,
	"anticholinergic_effects":    Anticholinergic,
	"sedative":                   Sedating,
	"sedation":                   Sedating,
	"cns_depressant":             Sedating,
	"qtc_prolonging":             QTProlonging,
	"qt":                         QTProlonging,
	"torsadogenic":               QTProlonging,
	"renal_toxic":                Nephrotoxic,
	"renally_cleared_toxin":      Nephrotoxic,
	"serotonin":                  Serotonergic,
	"serotoninergic":             Serotonergic,
	"narcotic":                   Opioid,
	"opiate":                     Opioid,
	"falls_risk":                 FallRisk,
	"fall-risk":                  FallRisk,
	"hypoglycemia_risk":          Hypoglycemic,
	"orthostatic":                Hypotensive,
	"bp_lowering":                Hypotensive,
	"hr_lowering":                Bradycardic,
	"sodium_retaining":           FluidRetaining,
	"antidopaminergic":           DopamineBlocking,
	"seizure_threshold_lowering": SeizureLowering,
	"bleed_risk":                 BleedingRisk,
	"constipation_risk":          Constipating,
}

// Normalize maps a raw tag string onto the canonical vocabulary.
// Unresolvable input is returned lowercased and trimmed so that it
// fails IsValid; Normalize never errors. Idempotent by construction:
// canonical tags map to themselves.
func Normalize(raw string) Tag {
	t := Tag(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := canonical[t]; ok {
		return t
	}
	if c, ok := aliases[string(t)]; ok {
		return c
	}
	return t
}

// IsValid reports whether the tag is a member of the canonical set.
func IsValid(t Tag) bool {
	_, ok := canonical[t]
	return ok
}

// IsAlias reports whether raw is a recognized legacy spelling.
func IsAlias(raw string) bool {
	_, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// All returns the canonical tag set in unspecified order.
func All() []Tag {
	out := make([]Tag, 0, len(canonical))
	for t := range canonical {
		out = append(out, t)
	}
	return out
}

// NormalizeAll normalizes and deduplicates a tag list, dropping entries
// that do not resolve to the canonical set. The dropped count is
// returned for instrumentation; callers must not treat it as an error.
func NormalizeAll(raw []string) (tags []Tag, dropped int) {
	seen := make(map[Tag]struct{}, len(raw))
	for _, r := range raw {
		t := Normalize(r)
		if !IsValid(t) {
			dropped++
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags, dropped
}

// Reporter emits a one-time-per-alias deprecation signal. It is a side
// channel only: evaluation results are identical with or without it.
type Reporter struct {
	log *logrus.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewReporter creates a deprecation reporter backed by the given logger.
func NewReporter(log *logrus.Logger) *Reporter {
	return &Reporter{log: log, seen: make(map[string]struct{})}
}

// Observe records that a raw tag spelling was seen at the boundary,
// logging a deprecation warning the first time each alias appears.
func (r *Reporter) Observe(raw string) {
	if r == nil || !IsAlias(raw) {
		return
	}
	key := strings.ToLower(strings.TrimSpace(raw))

	r.mu.Lock()
	_, logged := r.seen[key]
	if !logged {
		r.seen[key] = struct{}{}
	}
	r.mu.Unlock()

	if !logged {
		r.log.WithFields(logrus.Fields{
			"alias":     key,
			"canonical": string(Normalize(raw)),
		}).Warn("Deprecated effect tag alias seen; update the source table")
	}
}
