package demographic

import (
	"strings"
)

// Case is one row of the case linelist. Every field is optional.
type Case struct {
	Gender           string `json:"gender"`
	AgeBracket       string `json:"agebracket"`
	Nationality      string `json:"nationality"`
	CurrentStatus    string `json:"currentstatus"`
	DetectedState    string `json:"detectedstate"`
	TransmissionType string `json:"typeoftransmission"`
}

type Table map[string]int

func (t Table) Total() int {
	total := 0
	for _, count := range t {
		total += count
	}
	return total
}

// Profile is the content of demographic.json. Each table counts only the
// cases that carry a usable value for its field.
type Profile struct {
	Gender       Table `json:"GENDER"`
	Age          Table `json:"AGE"`
	Nationality  Table `json:"NATIONALITY"`
	Status       Table `json:"CSTATUS"`
	State        Table `json:"STATE"`
	Transmission Table `json:"TRANSMISSION"`
}

func newProfile() Profile {
	profile := Profile{
		Gender:       Table{"M": 0, "F": 0},
		Age:          Table{},
		Nationality:  Table{},
		Status:       Table{},
		State:        Table{},
		Transmission: Table{},
	}
	for _, bucket := range AgeBuckets {
		profile.Age[bucket] = 0
	}
	return profile
}

func countValue(table Table, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	table[value]++
}

// Build tallies cases into the six tables. A case with an unusable value
// for one field is left out of that table only.
func Build(cases []Case) Profile {
	profile := newProfile()
	for _, c := range cases {
		switch strings.ToUpper(strings.TrimSpace(c.Gender)) {
		case "M":
			profile.Gender["M"]++
		case "F":
			profile.Gender["F"]++
		}

		age, ok := ParseAge(c.AgeBracket)
		if ok {
			bucket, ok := AgeBucket(age)
			if ok {
				profile.Age[bucket]++
			}
		}

		countValue(profile.Nationality, c.Nationality)
		countValue(profile.Status, c.CurrentStatus)
		countValue(profile.State, c.DetectedState)
		countValue(profile.Transmission, c.TransmissionType)
	}
	return profile
}
