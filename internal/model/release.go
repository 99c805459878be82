package model

import "fmt"

// MonthlyRelease holds one month's raw incident table exactly as published:
// a header row plus data rows. Content is not interpreted until the release
// has passed structural validation.
type MonthlyRelease struct {
	Header []string
	Rows   [][]string
	Year   int
	Month  int
}

// Label returns the release's "YYYY-MM" label.
func (r *MonthlyRelease) Label() string {
	return fmt.Sprintf("%04d-%02d", r.Year, r.Month)
}

// ColumnCount returns the number of columns in the release header.
func (r *MonthlyRelease) ColumnCount() int {
	return len(r.Header)
}

// ReleaseSet is a year's collection of monthly releases, ordered by month.
type ReleaseSet struct {
	Releases []MonthlyRelease
	Year     int
}

// YearTable is the ordered collection of incidents attributed to one
// occurrence year.
type YearTable struct {
	Records []Incident
	Year    int
}

// Len returns the number of records in the table.
func (t *YearTable) Len() int {
	return len(t.Records)
}
