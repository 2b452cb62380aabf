package registry

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestPriorityFilterMonotonic(t *testing.T) {
	r := Default()
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.SampledFrom(Domains).Draw(rt, "domain")
		lo := rapid.IntRange(1, 3).Draw(rt, "lo")
		hi := rapid.IntRange(lo, 3).Draw(rt, "hi")
		low := r.QuestionsForDomain(d, lo)
		high := r.QuestionsForDomain(d, hi)
		if len(low) > len(high) {
			rt.Errorf("%s: maxPriority %d returned more questions than %d", d, lo, hi)
		}
		// every question in the low list appears in the high list in order
		j := 0
		for _, q := range low {
			for j < len(high) && high[j].Field != q.Field {
				j++
			}
			if j == len(high) {
				rt.Errorf("%s: question %s in priority<=%d list but not priority<=%d list", d, q.Field, lo, hi)
				break
			}
		}
	})
}

func TestEssentialTokensResolveToFieldNames(t *testing.T) {
	r := Default()
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.SampledFrom(Domains).Draw(rt, "domain")
		known := make(map[string]bool)
		for _, n := range r.FieldNames(d) {
			known[n] = true
		}
		for _, tok := range r.EssentialFields(d) {
			for _, name := range strings.Split(tok, "|") {
				if !known[name] {
					rt.Errorf("%s: essential token name %q not in FieldNames", d, name)
				}
			}
		}
	})
}

func TestParseDomainTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "key")
		d := ParseDomain(s)
		found := false
		for _, known := range Domains {
			if d == known {
				found = true
			}
		}
		if !found {
			rt.Errorf("ParseDomain(%q) = %q, not a known domain", s, d)
		}
	})
}
