package registry

import (
	"reflect"
	"strings"
	"testing"
)

func TestDefaultCatalogIntegrity(t *testing.T) {
	if err := Default().Verify(); err != nil {
		t.Fatalf("catalog integrity: %v", err)
	}
}

func TestQuestionsForDomainPriorityFilter(t *testing.T) {
	r := Default()
	for _, d := range Domains {
		critical := r.QuestionsForDomain(d, PriorityCritical)
		all := r.QuestionsForDomain(d, PriorityHelpful)
		if len(critical) == 0 {
			t.Fatalf("%s: no critical questions", d)
		}
		if len(critical) > len(all) {
			t.Fatalf("%s: critical list longer than full list", d)
		}
		for _, q := range critical {
			if q.Priority != PriorityCritical {
				t.Fatalf("%s: question %s has priority %d in critical list", d, q.Field, q.Priority)
			}
		}
		// definition order preserved under filtering
		idx := 0
		for _, q := range all {
			if q.Priority == PriorityCritical {
				if critical[idx].Field != q.Field {
					t.Fatalf("%s: critical list out of order at %s", d, q.Field)
				}
				idx++
			}
		}
	}
}

func TestQuestionsForDomainClampsPriority(t *testing.T) {
	r := Default()
	if got, want := r.QuestionsForDomain(DomainTravel, 0), r.QuestionsForDomain(DomainTravel, 1); !questionFieldsEqual(got, want) {
		t.Fatalf("maxPriority 0 should clamp to 1")
	}
	if got, want := r.QuestionsForDomain(DomainTravel, 99), r.QuestionsForDomain(DomainTravel, 3); !questionFieldsEqual(got, want) {
		t.Fatalf("maxPriority 99 should clamp to 3")
	}
}

func TestFieldNamesCoverCanonicalFields(t *testing.T) {
	r := Default()
	for _, d := range Domains {
		names := r.FieldNames(d)
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		for _, q := range r.QuestionsForDomain(d, PriorityHelpful) {
			if !set[q.Field] {
				t.Fatalf("%s: field %s missing from FieldNames", d, q.Field)
			}
			for _, alt := range q.AlternateFields {
				if !set[alt] {
					t.Fatalf("%s: alternate %s missing from FieldNames", d, alt)
				}
			}
		}
	}
}

func TestEssentialFieldsTokens(t *testing.T) {
	r := Default()
	for _, d := range Domains {
		tokens := r.EssentialFields(d)
		critical := r.QuestionsForDomain(d, PriorityCritical)
		if len(tokens) != len(critical) {
			t.Fatalf("%s: %d tokens for %d critical questions", d, len(tokens), len(critical))
		}
		for i, tok := range tokens {
			parts := strings.Split(tok, "|")
			if parts[0] != critical[i].Field {
				t.Fatalf("%s: token %q does not start with canonical field %s", d, tok, critical[i].Field)
			}
			if len(parts) != 1+len(critical[i].AlternateFields) {
				t.Fatalf("%s: token %q missing alternates", d, tok)
			}
		}
	}
}

func TestUnknownDomainFallsBackToTravel(t *testing.T) {
	r := Default()
	unknown := Domain("not_a_real_domain")
	if got := ParseDomain("not_a_real_domain"); got != DefaultDomain {
		t.Fatalf("ParseDomain: got %s", got)
	}
	if !questionFieldsEqual(r.QuestionsForDomain(unknown, 1), r.QuestionsForDomain(DomainTravel, 1)) {
		t.Fatalf("QuestionsForDomain fallback mismatch")
	}
	if !reflect.DeepEqual(r.FieldNames(unknown), r.FieldNames(DomainTravel)) {
		t.Fatalf("FieldNames fallback mismatch")
	}
	if !reflect.DeepEqual(r.EssentialFields(unknown), r.EssentialFields(DomainTravel)) {
		t.Fatalf("EssentialFields fallback mismatch")
	}
}

func TestTravelCriticalFields(t *testing.T) {
	qs := Default().QuestionsForDomain(DomainTravel, PriorityCritical)
	want := []string{"specificDestination", "dates", "duration"}
	if len(qs) != len(want) {
		t.Fatalf("expected %d critical travel questions, got %d", len(want), len(qs))
	}
	for i, q := range qs {
		if q.Field != want[i] {
			t.Fatalf("critical travel question %d: got %s, want %s", i, q.Field, want[i])
		}
	}
}

func TestQuestionSatisfies(t *testing.T) {
	q := Default().QuestionsForDomain(DomainEvent, 3)[2] // guestCount
	if q.Field != "guestCount" {
		t.Fatalf("unexpected question order: %s", q.Field)
	}
	for _, key := range []string{"guestCount", "attendees", "headcount"} {
		if !q.Satisfies(key) {
			t.Fatalf("expected %s to satisfy guestCount", key)
		}
	}
	if q.Satisfies("venue") {
		t.Fatalf("venue should not satisfy guestCount")
	}
}

func questionFieldsEqual(a, b []Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Field != b[i].Field {
			return false
		}
	}
	return true
}
