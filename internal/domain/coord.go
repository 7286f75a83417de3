package domain

import (
	"regexp"
	"strconv"
)

// degreeMinuteRe matches a two-digit degree group followed by a two-digit minute
// group, separated by optional whitespace, punctuation or symbols such as "°".
var degreeMinuteRe = regexp.MustCompile(`(\d{2})[\s\p{P}\p{S}]*(\d{2})`)

// ParseDegreeMinutes converts every degree-minute pair found in text to decimal
// degrees, in the order they appear. Text without a pair yields an empty slice.
func ParseDegreeMinutes(text string) []float64 {
	matches := degreeMinuteRe.FindAllStringSubmatch(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		// Both groups are exactly two ASCII digits, so Atoi cannot fail.
		deg, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		out = append(out, float64(deg)+float64(mins)/60)
	}
	return out
}

// firstDegreeMinute returns the first decimal-degree value in text.
func firstDegreeMinute(text string) (float64, bool) {
	values := ParseDegreeMinutes(text)
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}
