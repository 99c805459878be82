// Package ingest loads raw monthly incident extracts from disk. The files
// are read as uninterpreted tables; structural validation happens in the
// schema package before any content is parsed.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencitydata/crimepipe/internal/model"
)

// Reader loads monthly release files from a data directory laid out as
// <dataDir>/<year>/<year>-<month>.csv.
type Reader struct {
	dataDir string
}

// NewReader creates a release reader rooted at dataDir.
func NewReader(dataDir string) *Reader {
	return &Reader{dataDir: dataDir}
}

// LoadYear reads every monthly release present for the given year, ordered
// by month. Missing months are skipped; a year with no files at all is an
// error.
func (r *Reader) LoadYear(ctx context.Context, year int) (model.ReleaseSet, error) {
	set := model.ReleaseSet{Year: year}

	for month := 1; month <= 12; month++ {
		if err := ctx.Err(); err != nil {
			return model.ReleaseSet{}, err
		}

		path := filepath.Join(r.dataDir, fmt.Sprintf("%d", year), fmt.Sprintf("%04d-%02d.csv", year, month))
		rel, err := r.loadRelease(path, year, month)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return model.ReleaseSet{}, fmt.Errorf("load release %04d-%02d: %w", year, month, err)
		}
		set.Releases = append(set.Releases, rel)
	}

	if len(set.Releases) == 0 {
		return model.ReleaseSet{}, fmt.Errorf("no release files found for %d under %s", year, r.dataDir)
	}

	slog.Info("Loaded release set",
		"year", year,
		"months", len(set.Releases))

	return set, nil
}

// loadRelease parses one monthly CSV file. Field counts are allowed to vary
// per row at this stage; the schema validator decides conformance.
func (r *Reader) loadRelease(path string, year, month int) (model.MonthlyRelease, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MonthlyRelease{}, err
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return model.MonthlyRelease{}, fmt.Errorf("release file %s is empty", path)
	}
	if err != nil {
		return model.MonthlyRelease{}, fmt.Errorf("read header: %w", err)
	}

	rel := model.MonthlyRelease{
		Year:   year,
		Month:  month,
		Header: header,
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.MonthlyRelease{}, fmt.Errorf("read row: %w", err)
		}
		rel.Rows = append(rel.Rows, row)
	}

	return rel, nil
}
