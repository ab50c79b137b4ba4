package demographic

import (
	"strconv"
	"strings"
)

var AgeBuckets = []string{
	"0-10", "11-20", "21-30", "31-40", "41-50",
	"51-60", "61-70", "71-80", "81-90", "91-100",
}

// ParseAge reads an age bracket cell. In order it tries a plain integer,
// a "low-high" range (the floor of the midpoint is used) and a decimal
// (the integer part is used).
func ParseAge(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	age, err := strconv.Atoi(value)
	if err == nil {
		return age, true
	}

	if strings.Contains(value, "-") {
		low, high, found := strings.Cut(value, "-")
		if !found {
			return 0, false
		}
		lowAge, err := strconv.Atoi(strings.TrimSpace(low))
		if err != nil {
			return 0, false
		}
		highAge, err := strconv.Atoi(strings.TrimSpace(high))
		if err != nil {
			return 0, false
		}
		return (lowAge + highAge) / 2, true
	}

	if strings.Contains(value, ".") {
		whole, _, _ := strings.Cut(value, ".")
		age, err := strconv.Atoi(whole)
		if err != nil {
			return 0, false
		}
		return age, true
	}

	return 0, false
}

// AgeBucket maps an age to its ten year bucket, upper bound inclusive.
// Ages outside 0-100 have no bucket.
func AgeBucket(age int) (string, bool) {
	if age < 0 || age > 100 {
		return "", false
	}
	if age <= 10 {
		return AgeBuckets[0], true
	}
	return AgeBuckets[(age-1)/10], true
}
