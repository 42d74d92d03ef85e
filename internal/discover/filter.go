package discover

import "strings"

// Filter decides whether a discovered target is worth queueing. All checks
// are substring matches against the normalized slug.
type Filter struct {
	MinLength int      // slugs shorter than this are dropped
	Require   []string // at least one must match; empty list allows all
	Exclude   []string // any match disqualifies
}

// Allow reports whether the normalized slug passes the filter.
func (f Filter) Allow(slug string) bool {
	if len(slug) < f.MinLength {
		return false
	}
	for _, kw := range f.Exclude {
		if kw != "" && strings.Contains(slug, kw) {
			return false
		}
	}
	if len(f.Require) > 0 {
		matched := false
		for _, kw := range f.Require {
			if kw != "" && strings.Contains(slug, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
