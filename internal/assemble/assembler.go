// Package assemble merges validated monthly releases into per-year tables,
// attributing each incident to the year it occurred rather than the year
// it was reported.
package assemble

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/opencitydata/crimepipe/internal/model"
)

// Canonical column positions inside a conforming release. The schema
// validator guarantees these before assembly runs.
const (
	colComplaint     = 0
	colCodedMonth    = 1
	colDateOccur     = 2
	colCount         = 6
	colCrime         = 8
	colDescription   = 10
	colILEADSAddress = 11
	colILEADSStreet  = 12
	colXCoord        = 18
	colYCoord        = 19
)

// Assemble builds the year table for target's year: every record across the
// target set and all later sets whose occurrence year equals the target
// year, minus zero-count administrative rows, filtered to Part 1 crimes.
// Pure function of its inputs; later sets are read, never written.
func Assemble(target model.ReleaseSet, later ...model.ReleaseSet) model.YearTable {
	table := model.YearTable{Year: target.Year}

	var parsed, badDates, zeroCount, otherCategory int

	sets := append([]model.ReleaseSet{target}, later...)
	for _, set := range sets {
		for _, rel := range set.Releases {
			for _, row := range rel.Rows {
				rec := parseRow(row)
				parsed++

				if err := rec.ParseOccurredAt(); err != nil {
					badDates++
					continue
				}
				if rec.OccurrenceYear() != target.Year {
					continue
				}
				if rec.Count == 0 {
					zeroCount++
					continue
				}
				if rec.CategoryOf() != model.CategoryPart1 {
					otherCategory++
					continue
				}
				table.Records = append(table.Records, rec)
			}
		}
	}

	slog.Info("Assembled year table",
		"year", target.Year,
		"records", table.Len(),
		"scanned", parsed,
		"bad_dates", badDates,
		"zero_count", zeroCount,
		"non_part1", otherCategory)

	return table
}

// parseRow converts one conforming release row into an incident record.
func parseRow(row []string) model.Incident {
	rec := model.Incident{
		Complaint:   field(row, colComplaint),
		CodedMonth:  field(row, colCodedMonth),
		DateOccur:   field(row, colDateOccur),
		CrimeCode:   field(row, colCrime),
		Description: field(row, colDescription),
		AddressNum:  field(row, colILEADSAddress),
		Street:      field(row, colILEADSStreet),
	}

	if n, err := strconv.Atoi(field(row, colCount)); err == nil {
		rec.Count = n
	}

	rec.X = parseCoord(field(row, colXCoord))
	rec.Y = parseCoord(field(row, colYCoord))
	return rec
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCoord reads a raw coordinate cell. The extracts use 0 for unknown,
// so blank, unparsable, and zero all mean missing.
func parseCoord(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
