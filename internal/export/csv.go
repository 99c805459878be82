// Package export writes the cleaned per-year tables and the per-region
// count file feeding the downstream rate comparison.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/opencitydata/crimepipe/internal/model"
)

// yearHeader is the fixed column order of the cleaned per-year files.
var yearHeader = []string{
	"year",
	"complaint",
	"occurred_at",
	"crime",
	"description",
	"address",
	"street",
	"neighborhood",
	"region",
	"geo_source",
	"geo_address",
	"geo_score",
	"x",
	"y",
}

// Writer emits cleaned tables into an output directory.
type Writer struct {
	outDir string
}

// NewWriter creates a writer rooted at outDir, creating it if needed.
func NewWriter(outDir string) (*Writer, error) {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{outDir: outDir}, nil
}

// WriteYear writes one cleaned year table. Row order is preserved from the
// table, which the joiner has already sorted by occurrence timestamp.
func (w *Writer) WriteYear(table model.YearTable) (string, error) {
	path := filepath.Join(w.outDir, fmt.Sprintf("incidents_%d.csv", table.Year))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write(yearHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i := range table.Records {
		if err := cw.Write(recordRow(table.Year, &table.Records[i])); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}

	slog.Info("Wrote cleaned year table",
		"year", table.Year,
		"rows", table.Len(),
		"path", path)

	return path, nil
}

// WriteRegionCounts writes per-(year, region) incident counts across all
// cleaned tables. Unlabeled records are counted under an empty region so
// the file totals still reconcile with the per-year tables.
func (w *Writer) WriteRegionCounts(tables []model.YearTable) (string, error) {
	path := filepath.Join(w.outDir, "region_counts.csv")

	type key struct {
		region string
		year   int
	}
	counts := make(map[key]int)
	for _, table := range tables {
		for i := range table.Records {
			k := key{year: table.Year}
			if table.Records[i].Region != nil {
				k.region = *table.Records[i].Region
			}
			counts[k]++
		}
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].year != keys[b].year {
			return keys[a].year < keys[b].year
		}
		return keys[a].region < keys[b].region
	})

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"year", "region", "incidents"}); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, k := range keys {
		row := []string{strconv.Itoa(k.year), k.region, strconv.Itoa(counts[k])}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}

	return path, nil
}

func recordRow(year int, rec *model.Incident) []string {
	row := make([]string, 0, len(yearHeader))
	row = append(row,
		strconv.Itoa(year),
		rec.Complaint,
	)

	if rec.OccurredAt.IsZero() {
		row = append(row, "")
	} else {
		row = append(row, rec.OccurredAt.Format("2006-01-02 15:04"))
	}

	row = append(row,
		rec.CrimeCode,
		rec.Description,
		rec.AddressNum,
		rec.Street,
		intField(rec.Neighborhood),
		strField(rec.Region),
		rec.GeocodeTier,
		rec.GeocodeAddr,
		floatField(rec.GeocodeScore, 1),
		floatField(rec.X, 6),
		floatField(rec.Y, 6),
	)
	return row
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatField(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
