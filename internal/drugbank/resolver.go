package drugbank

import (
	"regexp"
	"strings"
)

// resolver is one strategy in the ranked name-resolution chain. Each
// strategy returns a definite record index or a miss, so behavior stays
// auditable and each strategy is unit-testable on its own.
type resolver interface {
	name() string
	resolve(s *Store, norm string) (int, bool)
}

// exactResolver matches the canonical lowercase name verbatim.
type exactResolver struct{}

func (exactResolver) name() string { return "exact" }

func (exactResolver) resolve(s *Store, norm string) (int, bool) {
	idx, ok := s.byName[norm]
	return idx, ok
}

// doseSuffixPattern strips trailing dose/strength/frequency tokens such
// as "metformin 500 mg bid" or "sertraline 50mg daily".
var doseSuffixPattern = regexp.MustCompile(`(?i)\s+(\d+([.,]\d+)?\s*(mg|mcg|g|ml|units?|iu)?|mg|mcg|g|ml|units?|iu|od|bid|tid|qid|qd|qhs|prn|daily|nightly|weekly|xr|sr|er|cr|la)\b\.?`)

// suffixResolver strips dose/strength suffixes and retries the exact
// match. Clinical input routinely carries strength suffixes, and this
// keeps those resolutions out of the recall-oriented substring scan.
type suffixResolver struct{}

func (suffixResolver) name() string { return "dose_suffix" }

func (suffixResolver) resolve(s *Store, norm string) (int, bool) {
	stripped := strings.TrimSpace(doseSuffixPattern.ReplaceAllString(norm, ""))
	if stripped == "" || stripped == norm {
		return 0, false
	}
	idx, ok := s.byName[stripped]
	return idx, ok
}

// substringResolver scans table entries in fixed declaration order and
// takes the first whose canonical name contains, or is contained in,
// the input. Precision is intentionally traded for recall (brand names,
// compound strings); the fixed scan order guarantees reproducibility.
type substringResolver struct{}

func (substringResolver) name() string { return "substring" }

func (substringResolver) resolve(s *Store, norm string) (int, bool) {
	if len(norm) < minSubstringLen {
		return 0, false
	}
	for i := range s.records {
		cand := s.records[i].key
		if len(cand) < minSubstringLen {
			continue
		}
		if strings.Contains(norm, cand) || strings.Contains(cand, norm) {
			return i, true
		}
	}
	return 0, false
}

// minSubstringLen guards against trivially short names matching
// everything in the substring scan.
const minSubstringLen = 4
