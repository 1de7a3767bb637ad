package score

import (
	"regexp"
	"time"
)

// deadlinePattern finds "deadline/due/effective [date] [of|on] <date>" in
// lowercased update text.
var deadlinePattern = regexp.MustCompile(
	`(?:deadline|due|effective)\s*(?:date)?\s*(?:of|on)?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{2}-\d{2})`)

// deadlineLayouts are tried in order; ambiguous day-month order resolves
// month-first.
var deadlineLayouts = []string{
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"2006-01-02",
	"1/2/06",
	"1-2-06",
}

// extractDeadline pulls a compliance deadline out of update text. The zero
// time means no deadline was mentioned or the date did not parse.
func extractDeadline(text string) time.Time {
	m := deadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, m[1]); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
