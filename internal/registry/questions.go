package registry

// defaultQuestionSets is the built-in catalog. Field names match the keys the
// extraction model emits; alternates are synonym keys that satisfy the same
// question without re-asking.
func defaultQuestionSets() map[Domain][]Question {
	return map[Domain][]Question{
		DomainTravel: {
			newQuestion("specificDestination", "Where exactly are you headed?", PriorityCritical,
				"e.g. Barcelona and Madrid, the Amalfi coast", "destination", "location"),
			newQuestion("dates", "When are you planning to visit {destination}?", PriorityCritical,
				"e.g. Nov 10-24, sometime next spring", "travelDates", "when"),
			newQuestion("duration", "How long will the trip be?", PriorityCritical,
				"e.g. 2 weeks, a long weekend", "tripLength", "lengthOfStay"),
			newQuestion("budget", "What's your rough budget for {destination}?", PriorityImportant,
				"e.g. $2000 total, mid-range", "priceRange"),
			newQuestion("travelers", "Who's coming along?", PriorityImportant,
				"e.g. just me, family of four", "groupSize", "companions"),
			newQuestion("accommodation", "Any preference for where you stay?", PriorityImportant,
				"e.g. boutique hotels, Airbnb, hostels", "lodging"),
			newQuestion("transportMode", "How do you want to get around?", PriorityHelpful,
				"e.g. rental car, trains, walking", "transportation"),
			newQuestion("interests", "What do you most want to do there?", PriorityHelpful,
				"e.g. food, museums, hiking", "activities"),
		},
		DomainEvent: {
			newQuestion("eventType", "What kind of event are you planning?", PriorityCritical,
				"e.g. birthday party, wedding, retirement dinner", "occasion"),
			newQuestion("eventDate", "When is the event happening?", PriorityCritical,
				"e.g. March 15th, the last Saturday in June", "date", "when"),
			newQuestion("guestCount", "Roughly how many guests are you expecting?", PriorityCritical,
				"e.g. 50 people, just close family", "attendees", "headcount"),
			newQuestion("venue", "Do you have a venue in mind?", PriorityImportant,
				"e.g. our backyard, a rented hall", "location"),
			newQuestion("budget", "What budget are you working with?", PriorityImportant,
				"e.g. $500, whatever it takes"),
			newQuestion("theme", "Any theme or style you're going for?", PriorityHelpful,
				"e.g. tropical, black tie, 90s"),
			newQuestion("catering", "How do you want to handle food and drinks?", PriorityHelpful,
				"e.g. catered, potluck, just snacks", "food"),
		},
		DomainDining: {
			newQuestion("cuisine", "What kind of food are you in the mood for?", PriorityCritical,
				"e.g. Italian, sushi, something new", "foodType"),
			newQuestion("dateTime", "When do you want to go?", PriorityCritical,
				"e.g. Friday at 7pm, tomorrow lunch", "when"),
			newQuestion("partySize", "How many people will be dining?", PriorityCritical,
				"e.g. two of us, a group of eight", "groupSize"),
			newQuestion("area", "What part of town works best?", PriorityImportant,
				"e.g. downtown, near the office", "neighborhood"),
			newQuestion("budget", "What price range are you thinking?", PriorityImportant,
				"e.g. cheap eats, special occasion", "priceRange"),
			newQuestion("dietaryRestrictions", "Any dietary restrictions to plan around?", PriorityHelpful,
				"e.g. vegetarian, gluten-free, none", "dietary"),
			newQuestion("ambiance", "What kind of atmosphere do you want?", PriorityHelpful,
				"e.g. quiet, lively, kid-friendly"),
		},
		DomainWellness: {
			newQuestion("wellnessGoal", "What are you trying to achieve?", PriorityCritical,
				"e.g. sleep better, train for a 10k, reduce stress", "goal"),
			newQuestion("timeframe", "Over what timeframe?", PriorityCritical,
				"e.g. the next month, by summer", "deadline"),
			newQuestion("currentRoutine", "What does your current routine look like?", PriorityImportant,
				"e.g. gym twice a week, nothing regular", "currentHabits"),
			newQuestion("availability", "How much time can you commit each week?", PriorityImportant,
				"e.g. 30 minutes a day, weekends only", "timeCommitment"),
			newQuestion("preferences", "Any activities you love or want to avoid?", PriorityHelpful,
				"e.g. love yoga, hate running"),
			newQuestion("constraints", "Any injuries or constraints I should know about?", PriorityHelpful,
				"e.g. bad knee, no equipment at home", "limitations"),
		},
		DomainLearning: {
			newQuestion("subject", "What do you want to learn?", PriorityCritical,
				"e.g. Spanish, watercolor painting, SQL", "topic", "skill"),
			newQuestion("currentLevel", "Where are you starting from?", PriorityCritical,
				"e.g. complete beginner, rusty intermediate", "experience"),
			newQuestion("timeCommitment", "How much time can you put in per week?", PriorityImportant,
				"e.g. 5 hours a week, 20 minutes a day", "hoursPerWeek"),
			newQuestion("targetDate", "Any deadline or milestone you're aiming for?", PriorityHelpful,
				"e.g. conversational by December, none", "deadline"),
			newQuestion("learningStyle", "How do you learn best?", PriorityHelpful,
				"e.g. videos, books, hands-on projects"),
		},
		DomainSocial: {
			newQuestion("gatheringType", "What kind of get-together is this?", PriorityCritical,
				"e.g. game night, casual dinner, reunion", "occasion"),
			newQuestion("date", "When were you thinking?", PriorityCritical,
				"e.g. this Saturday, sometime next week", "when"),
			newQuestion("groupSize", "How many people are you expecting?", PriorityImportant,
				"e.g. 4-6 friends, the whole crew", "attendees"),
			newQuestion("location", "Where will it happen?", PriorityImportant,
				"e.g. my place, somewhere central", "venue"),
			newQuestion("activityPreferences", "Anything the group loves doing?", PriorityHelpful,
				"e.g. board games, karaoke, just talking"),
		},
		DomainEntertainment: {
			newQuestion("entertainmentType", "What kind of entertainment are you after?", PriorityCritical,
				"e.g. live music, movie night, a show", "activityType"),
			newQuestion("date", "When do you want to go?", PriorityCritical,
				"e.g. Friday night, this weekend", "when"),
			newQuestion("groupSize", "Who's going?", PriorityImportant,
				"e.g. date night, group of friends", "attendees"),
			newQuestion("budget", "What's the budget per person?", PriorityImportant,
				"e.g. under $30, money no object"),
			newQuestion("genre", "Any genre or vibe you prefer?", PriorityHelpful,
				"e.g. jazz, comedy, indie films", "preferences"),
		},
		DomainWork: {
			newQuestion("objective", "What's the outcome you need to deliver?", PriorityCritical,
				"e.g. launch the newsletter, finish the report", "goal", "deliverable"),
			newQuestion("deadline", "When does it need to be done?", PriorityCritical,
				"e.g. end of quarter, next Friday", "dueDate"),
			newQuestion("scope", "What's in and out of scope?", PriorityImportant,
				"e.g. draft only, full rollout"),
			newQuestion("collaborators", "Who else is involved?", PriorityImportant,
				"e.g. just me, the design team", "team"),
			newQuestion("resources", "What tools or resources do you have?", PriorityHelpful,
				"e.g. budget approved, existing templates"),
		},
		DomainShopping: {
			newQuestion("items", "What are you shopping for?", PriorityCritical,
				"e.g. a winter coat, birthday gift for dad", "shoppingList", "products"),
			newQuestion("budget", "How much do you want to spend?", PriorityCritical,
				"e.g. around $100, as little as possible", "priceRange"),
			newQuestion("neededBy", "When do you need it?", PriorityImportant,
				"e.g. before the 20th, no rush", "deadline"),
			newQuestion("stores", "Any preferred stores or brands?", PriorityHelpful,
				"e.g. local shops only, whatever's cheapest", "preferredStores"),
			newQuestion("quality", "Any quality or style preferences?", PriorityHelpful,
				"e.g. buy it for life, trendy is fine", "brandPreferences"),
		},
	}
}
