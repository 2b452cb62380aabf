// Package detect guesses the planning domain from free text. It is the
// in-process default used when no explicit domain hint is supplied; callers
// with a better classifier pass its result as a hint and skip this entirely.
package detect

import (
	"strings"

	"journalmate/internal/registry"
)

// keywords per domain, matched against lowercased whitespace-split tokens.
// A token scores for every domain that lists it; the highest total wins,
// ties broken by registry declaration order.
var keywords = map[registry.Domain][]string{
	registry.DomainTravel: {
		"trip", "travel", "vacation", "holiday", "flight", "flights",
		"itinerary", "visit", "abroad", "getaway", "roadtrip", "backpacking",
	},
	registry.DomainEvent: {
		"party", "event", "birthday", "wedding", "anniversary", "celebration",
		"reception", "shower", "reunion", "ceremony",
	},
	registry.DomainDining: {
		"dinner", "lunch", "brunch", "restaurant", "reservation", "meal",
		"dining", "eat", "food", "cuisine", "takeout",
	},
	registry.DomainWellness: {
		"workout", "fitness", "gym", "yoga", "meditation", "wellness",
		"exercise", "run", "running", "health", "spa", "diet",
	},
	registry.DomainLearning: {
		"learn", "study", "course", "class", "skill", "tutorial",
		"certification", "practice", "language", "lesson",
	},
	registry.DomainSocial: {
		"friends", "hangout", "meetup", "catchup", "gathering", "social",
		"drinks", "boardgame", "picnic",
	},
	registry.DomainEntertainment: {
		"movie", "concert", "show", "theater", "theatre", "festival",
		"museum", "gig", "cinema", "watch",
	},
	registry.DomainWork: {
		"project", "deadline", "meeting", "presentation", "sprint",
		"launch", "report", "interview", "offsite", "standup",
	},
	registry.DomainShopping: {
		"buy", "shopping", "purchase", "shop", "gift", "wishlist",
		"order", "errands",
	},
}

// Domain scores the text against the keyword table. No signal at all falls
// back to the registry default, matching how an unrecognized hint resolves.
func Domain(text string) registry.Domain {
	return score(text, registry.DefaultDomain)
}

func score(text string, fallback registry.Domain) registry.Domain {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return fallback
	}
	best := fallback
	bestScore := 0
	for _, d := range registry.Domains {
		n := 0
		for _, kw := range keywords[d] {
			if tokens[kw] {
				n++
			}
		}
		if n > bestScore {
			best, bestScore = d, n
		}
	}
	return best
}

// Resolve prefers an explicit hint over text scoring. Unknown hints and
// signal-free text both land on fallback, which callers take from service
// config; an empty fallback means the registry default.
func Resolve(hint, text string, fallback registry.Domain) registry.Domain {
	def := registry.ParseDomain(string(fallback))
	if h := strings.TrimSpace(hint); h != "" {
		d := registry.Domain(strings.ToLower(h))
		for _, known := range registry.Domains {
			if d == known {
				return d
			}
		}
		return def
	}
	return score(text, def)
}

func tokenize(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if tok != "" {
			out[tok] = true
		}
	}
	return out
}
