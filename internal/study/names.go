package study

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// PersonName is a DICOM PN value split into its components.
type PersonName struct {
	Last   string
	First  string
	Middle string
}

// ParsePersonName splits a DICOM person name (LAST^FIRST^MIDDLE).
func ParsePersonName(pn string) PersonName {
	parts := strings.Split(pn, "^")
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	return PersonName{Last: get(0), First: get(1), Middle: get(2)}
}

// Full returns "First Middle Last", skipping empty components.
func (n PersonName) Full() string {
	var out []string
	for _, p := range []string{n.First, n.Middle, n.Last} {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// FormatPersonName converts a DICOM PN into display form.
func FormatPersonName(pn string) string {
	return ParsePersonName(pn).Full()
}

// FormatDate converts a DICOM DA value (YYYYMMDD) to YYYY-MM-DD.
// Values that are not valid dates are returned unchanged.
func FormatDate(da string) string {
	da = strings.TrimSpace(da)
	t, err := time.Parse("20060102", da)
	if err != nil {
		return da
	}
	return t.Format("2006-01-02")
}

var (
	demoMaleFirstNames = []string{
		"James", "John", "Robert", "Michael", "William", "David", "Thomas",
		"Jean", "Pierre", "Michel", "François", "Julien", "Antoine",
	}
	demoFemaleFirstNames = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Susan",
		"Marie", "Nathalie", "Isabelle", "Sophie", "Camille", "Hélène",
	}
	demoLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Miller", "Davis",
		"Martin", "Bernard", "Dubois", "Durand", "Lefebvre", "Moreau",
	}
)

// GeneratePatientName returns a random DICOM PN (LAST^FIRST) for demo data.
func GeneratePatientName(sex string, rng *rand.Rand) string {
	firstNames := demoMaleFirstNames
	if sex == "F" {
		firstNames = demoFemaleFirstNames
	}
	first := firstNames[rng.IntN(len(firstNames))]
	last := demoLastNames[rng.IntN(len(demoLastNames))]
	return fmt.Sprintf("%s^%s", strings.ToUpper(last), first)
}
