// Package model defines the core domain types shared across the pipeline.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Category buckets a crime code into the reporting hierarchy.
type Category string

// Crime categories.
const (
	CategoryPart1 Category = "Part 1"
	CategoryOther Category = "Other"
)

// Part 1 offense groups, keyed by the leading component of the crime code.
var part1Descriptions = map[int]string{
	1: "Homicide",
	2: "Rape",
	3: "Robbery",
	4: "Aggravated Assault",
	5: "Burglary",
	6: "Larceny",
	7: "Vehicle Theft",
	8: "Arson",
}

// Incident represents a single reported crime incident. Coordinate and
// join fields are pointers: nil means the value is not (yet) known.
type Incident struct {
	OccurredAt   time.Time
	X            *float64
	Y            *float64
	Neighborhood *int
	Region       *string
	GeocodeScore *float64
	Complaint    string
	CodedMonth   string // report month, e.g. "2017-05"
	DateOccur    string // raw occurrence timestamp, "01/02/2006 15:04"
	CrimeCode    string
	Description  string
	AddressNum   string // house-number fragment
	Street       string // street-name fragment
	GeocodeTier  string
	GeocodeAddr  string
	Count        int
}

// occurLayout is the timestamp format used by the monthly extracts.
const occurLayout = "01/02/2006 15:04"

// ParseOccurredAt parses the raw DateOccur field into OccurredAt.
// Rows with a blank or malformed timestamp keep the zero time and sort first.
func (i *Incident) ParseOccurredAt() error {
	raw := strings.TrimSpace(i.DateOccur)
	if raw == "" {
		i.OccurredAt = time.Time{}
		return nil
	}
	t, err := time.Parse(occurLayout, raw)
	if err != nil {
		return err
	}
	i.OccurredAt = t
	return nil
}

// OccurrenceYear returns the year the incident happened, as opposed to the
// year it was reported. Zero if the occurrence timestamp is unparsed.
func (i *Incident) OccurrenceYear() int {
	if i.OccurredAt.IsZero() {
		return 0
	}
	return i.OccurredAt.Year()
}

// CategoryOf derives the reporting category from the crime code. Part 1
// offenses occupy code blocks 10000 through 89999.
func (i *Incident) CategoryOf() Category {
	code, err := strconv.Atoi(strings.TrimSpace(i.CrimeCode))
	if err != nil {
		return CategoryOther
	}
	group := code / 10000
	if group >= 1 && group <= 8 {
		return CategoryPart1
	}
	return CategoryOther
}

// OffenseGroup returns the Part 1 offense group name for the crime code,
// or empty string for non-Part 1 codes.
func (i *Incident) OffenseGroup() string {
	code, err := strconv.Atoi(strings.TrimSpace(i.CrimeCode))
	if err != nil {
		return ""
	}
	return part1Descriptions[code/10000]
}

// HasCoordinates reports whether both coordinate fields are present.
func (i *Incident) HasCoordinates() bool {
	return i.X != nil && i.Y != nil
}
