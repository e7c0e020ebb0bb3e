package quality

import (
	"regexp"
)

const (
	sampleSize     = 100
	matchThreshold = 0.5
)

// Pattern is a named matcher for one kind of sensitive value.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

func fullMatch(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}

// SensitivePatterns is checked in order; the first qualifying pattern wins.
var SensitivePatterns = []Pattern{
	{Name: "email", Re: fullMatch(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{Name: "phone", Re: fullMatch(`(\+\d{1,3}[-.]?)?\(?\d{3}\)?[-.]?\d{3}[-.]?\d{4}`)},
	{Name: "ssn", Re: fullMatch(`\d{3}-\d{2}-\d{4}`)},
	{Name: "credit_card", Re: fullMatch(`\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}`)},
}

// Classify labels a column from a sample of its non-missing values. It
// returns "empty" for no values, a pattern name when more than half of the
// sample matches that pattern, and "text" otherwise.
func Classify(values []string) (category string, sensitive bool) {
	if len(values) > sampleSize {
		values = values[:sampleSize]
	}
	if len(values) == 0 {
		return "empty", false
	}

	for _, p := range SensitivePatterns {
		matches := 0
		for _, v := range values {
			if p.Re.MatchString(v) {
				matches++
			}
		}
		if float64(matches) > matchThreshold*float64(len(values)) {
			return p.Name, true
		}
	}
	return "text", false
}
