// Package schema validates and repairs the structure of monthly incident
// releases. Validation is purely structural: it checks column shape, never
// content.
package schema

import (
	"strings"

	"github.com/opencitydata/crimepipe/internal/model"
)

// CanonicalColumns is the column layout every month must conform to before
// releases can be merged.
var CanonicalColumns = []string{
	"Complaint",
	"CodedMonth",
	"DateOccur",
	"FlagCrime",
	"FlagUnfounded",
	"FlagAdministrative",
	"Count",
	"FlagCleanup",
	"Crime",
	"District",
	"Description",
	"ILEADSAddress",
	"ILEADSStreet",
	"Neighborhood",
	"LocationName",
	"LocationComment",
	"CADAddress",
	"CADStreet",
	"XCoord",
	"YCoord",
}

// legacyColumns is an older publication of the same layout with different
// header spellings. Structurally equivalent to CanonicalColumns.
var legacyColumns = []string{
	"Complaint",
	"MonthReportedtoMSHP",
	"DateOccured",
	"FlagCrime",
	"FlagUnfounded",
	"FlagAdministrative",
	"Count",
	"FlagCleanup",
	"Crime",
	"District",
	"Description",
	"ILEADSAddress",
	"ILEADSStreet",
	"Neighborhood",
	"LocationName",
	"LocationComment",
	"CADAddress",
	"CADStreet",
	"XCoord",
	"YCoord",
}

// knownSchemas are the column layouts accepted as conforming.
var knownSchemas = [][]string{CanonicalColumns, legacyColumns}

// MonthResult reports one month's structural check.
type MonthResult struct {
	Label    string
	Month    int
	Expected int
	Actual   int
	OK       bool
}

// ValidationReport is the outcome of validating a year's release set.
type ValidationReport struct {
	Months []MonthResult
	Year   int
	Valid  bool
}

// FailingMonths returns the months that did not conform.
func (r *ValidationReport) FailingMonths() []int {
	var months []int
	for _, m := range r.Months {
		if !m.OK {
			months = append(months, m.Month)
		}
	}
	return months
}

// Validate checks every month in the set against the known-valid layouts.
// One non-conforming month fails the whole year, but the report carries
// per-month results so the caller can route it to repair.
func Validate(set model.ReleaseSet) ValidationReport {
	report := ValidationReport{
		Year:  set.Year,
		Valid: true,
	}

	for _, rel := range set.Releases {
		result := MonthResult{
			Label:    rel.Label(),
			Month:    rel.Month,
			Expected: len(CanonicalColumns),
			Actual:   rel.ColumnCount(),
			OK:       conforms(rel.Header),
		}
		if !result.OK {
			report.Valid = false
		}
		report.Months = append(report.Months, result)
	}

	return report
}

// conforms reports whether the header matches one of the known layouts.
func conforms(header []string) bool {
	for _, known := range knownSchemas {
		if headerMatches(header, known) {
			return true
		}
	}
	return false
}

func headerMatches(header, known []string) bool {
	if len(header) != len(known) {
		return false
	}
	for i := range header {
		if normalizeColumn(header[i]) != normalizeColumn(known[i]) {
			return false
		}
	}
	return true
}

// normalizeColumn canonicalizes a header cell for comparison. Publications
// vary in case, spacing, and underscore use.
func normalizeColumn(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}
