// Package compat decides which toners fit a printer by fuzzy model-name matching.
//
// A candidate fits when one of its declared model strings contains the printer model, or
// the printer model contains it, compared case-insensitively, so "428" matches "M428fdn".
// Explicit printer model links live in the toner service and are merged with these
// results there.
package compat

import "strings"

// MaxRelated caps Related results.
const MaxRelated = 5

// Candidate is anything that declares printer models it fits and who makes it.
type Candidate interface {
	CompatibleModels() []string
	Maker() string
}

// Target is the printer side of the comparison.
type Target struct {
	Make  string
	Model string
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether c fits the target model. Blank strings never match.
func Matches(target Target, c Candidate) bool {
	model := normalize(target.Model)
	if model == "" {
		return false
	}
	for _, m := range c.CompatibleModels() {
		m = normalize(m)
		if m == "" {
			continue
		}
		if strings.Contains(model, m) || strings.Contains(m, model) {
			return true
		}
	}
	return false
}

// sameMaker reports a brand match or a compatibility entry naming the make.
func sameMaker(target Target, c Candidate) bool {
	mk := normalize(target.Make)
	if mk == "" {
		return false
	}
	if normalize(c.Maker()) == mk {
		return true
	}
	for _, m := range c.CompatibleModels() {
		if strings.Contains(normalize(m), mk) {
			return true
		}
	}
	return false
}

// Compatible keeps input order.
func Compatible[T Candidate](target Target, candidates []T) []T {
	out := make([]T, 0)
	for _, c := range candidates {
		if Matches(target, c) {
			out = append(out, c)
		}
	}
	return out
}

// Related returns up to MaxRelated candidates from the printer's make that are not
// compatible, in input order.
func Related[T Candidate](target Target, candidates []T) []T {
	return RelatedExcept(target, candidates, nil)
}

// RelatedExcept is Related with an extra exclusion, used to drop explicitly linked toners.
func RelatedExcept[T Candidate](target Target, candidates []T, skip func(T) bool) []T {
	out := make([]T, 0, MaxRelated)
	for _, c := range candidates {
		if len(out) == MaxRelated {
			break
		}
		if Matches(target, c) || (skip != nil && skip(c)) {
			continue
		}
		if sameMaker(target, c) {
			out = append(out, c)
		}
	}
	return out
}
