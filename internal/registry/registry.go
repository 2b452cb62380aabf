// Package registry holds the per-domain clarifying-question catalog that
// drives the planning dialogue. The catalog is built once at process start
// and is read-only afterwards, so it is safe to share across any number of
// concurrent planning sessions.
package registry

import (
	"fmt"
	"strings"
)

// Domain is one of the fixed planning categories.
type Domain string

const (
	DomainTravel        Domain = "travel"
	DomainEvent         Domain = "event"
	DomainDining        Domain = "dining"
	DomainWellness      Domain = "wellness"
	DomainLearning      Domain = "learning"
	DomainSocial        Domain = "social"
	DomainEntertainment Domain = "entertainment"
	DomainWork          Domain = "work"
	DomainShopping      Domain = "shopping"
)

// DefaultDomain is what unknown domain keys resolve to.
const DefaultDomain = DomainTravel

// Domains lists every known domain in a stable order.
var Domains = []Domain{
	DomainTravel,
	DomainEvent,
	DomainDining,
	DomainWellness,
	DomainLearning,
	DomainSocial,
	DomainEntertainment,
	DomainWork,
	DomainShopping,
}

// ParseDomain maps a string key to a known domain. Unknown keys resolve to
// DefaultDomain; this is deliberate policy, not an error.
func ParseDomain(s string) Domain {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains {
		if d == known {
			return d
		}
	}
	return DefaultDomain
}

// Priority tiers. Quick mode asks only critical questions; Smart mode walks
// all three tiers.
const (
	PriorityCritical  = 1
	PriorityImportant = 2
	PriorityHelpful   = 3
)

// Question is one clarifying question a domain can ask. A question is
// considered answered when its canonical Field or any of its AlternateFields
// is present in the session's collected data.
type Question struct {
	Field           string
	AlternateFields []string
	Prompt          string
	Priority        int
	Examples        string

	keys map[string]struct{}
}

func newQuestion(field, prompt string, priority int, examples string, alternates ...string) Question {
	keys := make(map[string]struct{}, 1+len(alternates))
	keys[field] = struct{}{}
	for _, alt := range alternates {
		keys[alt] = struct{}{}
	}
	return Question{
		Field:           field,
		AlternateFields: alternates,
		Prompt:          prompt,
		Priority:        priority,
		Examples:        examples,
		keys:            keys,
	}
}

// Satisfies reports whether the given field name answers this question.
func (q Question) Satisfies(field string) bool {
	_, ok := q.keys[field]
	return ok
}

// Keys returns the canonical field followed by its alternates.
func (q Question) Keys() []string {
	out := make([]string, 0, 1+len(q.AlternateFields))
	out = append(out, q.Field)
	out = append(out, q.AlternateFields...)
	return out
}

// Registry is the immutable domain → question catalog.
type Registry struct {
	sets map[Domain][]Question
}

// Default returns the built-in catalog.
func Default() Registry {
	return Registry{sets: defaultQuestionSets()}
}

func (r Registry) questions(d Domain) []Question {
	if qs, ok := r.sets[d]; ok {
		return qs
	}
	return r.sets[DefaultDomain]
}

// QuestionsForDomain returns the domain's questions, in definition order,
// whose priority is at most maxPriority. Unknown domains fall back to the
// default domain. maxPriority is clamped into [1,3].
func (r Registry) QuestionsForDomain(d Domain, maxPriority int) []Question {
	if maxPriority < PriorityCritical {
		maxPriority = PriorityCritical
	}
	if maxPriority > PriorityHelpful {
		maxPriority = PriorityHelpful
	}
	var out []Question
	for _, q := range r.questions(d) {
		if q.Priority <= maxPriority {
			out = append(out, q)
		}
	}
	return out
}

// FieldNames flattens every canonical field plus alternates for the domain,
// preserving question order then alternate order.
func (r Registry) FieldNames(d Domain) []string {
	var out []string
	for _, q := range r.questions(d) {
		out = append(out, q.Keys()...)
	}
	return out
}

// EssentialFields returns one token per priority-1 question, the canonical
// field joined with its alternates by "|". Any one of the joined names being
// present satisfies the requirement.
func (r Registry) EssentialFields(d Domain) []string {
	var out []string
	for _, q := range r.questions(d) {
		if q.Priority != PriorityCritical {
			continue
		}
		out = append(out, strings.Join(q.Keys(), "|"))
	}
	return out
}

// Verify checks catalog integrity: every domain present, canonical fields
// unique within a domain, and no alternate colliding with another question's
// canonical field. A failure here is a data defect in the catalog itself.
func (r Registry) Verify() error {
	for _, d := range Domains {
		qs, ok := r.sets[d]
		if !ok || len(qs) == 0 {
			return fmt.Errorf("domain %s has no questions", d)
		}
		fields := make(map[string]struct{}, len(qs))
		hasCritical := false
		for _, q := range qs {
			if q.Field == "" {
				return fmt.Errorf("domain %s has a question with empty field", d)
			}
			if q.Priority < PriorityCritical || q.Priority > PriorityHelpful {
				return fmt.Errorf("domain %s question %s has priority %d", d, q.Field, q.Priority)
			}
			if _, dup := fields[q.Field]; dup {
				return fmt.Errorf("domain %s has duplicate field %s", d, q.Field)
			}
			fields[q.Field] = struct{}{}
			if q.Priority == PriorityCritical {
				hasCritical = true
			}
		}
		for _, q := range qs {
			for _, alt := range q.AlternateFields {
				if _, clash := fields[alt]; clash {
					return fmt.Errorf("domain %s alternate %s of %s collides with a canonical field", d, alt, q.Field)
				}
			}
		}
		if !hasCritical {
			return fmt.Errorf("domain %s has no priority-1 question", d)
		}
	}
	return nil
}
