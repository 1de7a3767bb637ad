package score

// Curated keyword groups used for criticality matching. Terms are matched on
// word boundaries against the update title, summary, and category.
var impactKeywords = map[string][]string{
	"tax":           {"tax", "irs", "gst", "vat", "withholding", "taxation", "revenue"},
	"employment":    {"labor", "employment", "wage", "benefits", "leave", "employee", "worker"},
	"privacy":       {"privacy", "gdpr", "ccpa", "data protection", "personal data"},
	"safety":        {"safety", "osha", "workplace safety", "inspection"},
	"environmental": {"environment", "emissions", "sustainability", "waste", "pollution"},
	"financial":     {"reporting", "financial", "accounting", "audit", "disclosure"},
}

// industryKeywords maps an industry to terms signalling sector-specific rules.
var industryKeywords = map[string][]string{
	"healthcare":    {"hipaa", "patient", "healthcare", "medical", "pharma"},
	"finance":       {"finra", "sec", "securities", "banking", "financial", "broker"},
	"retail":        {"consumer", "pricing", "retail", "ecommerce"},
	"manufacturing": {"manufacturing", "production", "quality control"},
}

// regionMembers maps a region token to jurisdictions inside it, for partial
// jurisdiction matches (an EU-wide act concerns a business in Germany).
var regionMembers = map[string][]string{
	"eu": {
		"austria", "belgium", "bulgaria", "croatia", "cyprus", "czechia",
		"denmark", "estonia", "finland", "france", "germany", "greece",
		"hungary", "ireland", "italy", "latvia", "lithuania", "luxembourg",
		"malta", "netherlands", "poland", "portugal", "romania", "slovakia",
		"slovenia", "spain", "sweden",
	},
	"us": {
		"alabama", "alaska", "arizona", "california", "colorado", "connecticut",
		"delaware", "florida", "georgia", "illinois", "massachusetts",
		"michigan", "new york", "north carolina", "ohio", "oregon",
		"pennsylvania", "texas", "virginia", "washington",
	},
}

// regionAliases maps alternate spellings of a region to its token.
var regionAliases = map[string]string{
	"european union": "eu",
	"united states":  "us",
	"usa":            "us",
	"federal":        "us",
}
