package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/opencitydata/crimepipe/internal/assemble"
	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/export"
	"github.com/opencitydata/crimepipe/internal/geocode"
	"github.com/opencitydata/crimepipe/internal/ingest"
	"github.com/opencitydata/crimepipe/internal/model"
	"github.com/opencitydata/crimepipe/internal/schema"
	"github.com/opencitydata/crimepipe/internal/spatial"
)

// Pipeline wires the cleaning stages together: validate → repair →
// assemble → complete coordinates → spatial join → export. Each year is
// processed as one in-memory batch; the only cross-year dependency is the
// assembler reading strictly later years' validated releases.
type Pipeline struct {
	reader    *ingest.Reader
	completer *geocode.Completer
	joiner    *spatial.Joiner
	writer    *export.Writer
	rules     []schema.RepairRule
}

// New creates a pipeline from its collaborators.
func New(reader *ingest.Reader, completer *geocode.Completer, joiner *spatial.Joiner, writer *export.Writer, rules []schema.RepairRule) *Pipeline {
	return &Pipeline{
		reader:    reader,
		completer: completer,
		joiner:    joiner,
		writer:    writer,
		rules:     rules,
	}
}

// Run cleans every requested year and returns the collected metrics. A
// fatal failure halts only the affected year; remaining years still run,
// and the per-year errors are joined into the returned error.
func (p *Pipeline) Run(ctx context.Context, years []int) (Collector, error) {
	runID := uuid.New()
	slog.Info("Starting pipeline run",
		"run_id", runID,
		"years", years)

	ordered := append([]int(nil), years...)
	sort.Ints(ordered)

	sets, err := p.loadValidated(ctx, ordered)
	if err != nil {
		return Collector{}, err
	}

	var (
		collector Collector
		tables    []model.YearTable
		yearErrs  []error
	)

	for _, year := range ordered {
		later := laterSets(sets, year)
		table, metrics, err := p.runYear(ctx, sets[year], later)
		if err != nil {
			slog.Error("Year failed",
				"run_id", runID,
				"year", year,
				"error", err)
			yearErrs = append(yearErrs, err)
			continue
		}
		collector = collector.WithYear(metrics)
		tables = append(tables, table)
	}

	if len(tables) > 0 {
		if _, err := p.writer.WriteRegionCounts(tables); err != nil {
			yearErrs = append(yearErrs, fmt.Errorf("region counts: %w", err))
		}
	}

	slog.Info("Pipeline run finished",
		"run_id", runID,
		"years_ok", len(tables),
		"years_failed", len(yearErrs))

	return collector, errors.Join(yearErrs...)
}

// loadValidated loads and structurally validates every year's release set
// up front, repairing non-conforming months. Assembly needs later years'
// validated sets, so nothing downstream starts until all sets conform.
func (p *Pipeline) loadValidated(ctx context.Context, years []int) (map[int]model.ReleaseSet, error) {
	sets := make(map[int]model.ReleaseSet, len(years))

	for _, year := range years {
		set, err := p.reader.LoadYear(ctx, year)
		if err != nil {
			return nil, common.NewStageError("ingest", year, err)
		}

		report := schema.Validate(set)
		if !report.Valid {
			slog.Warn("Release set failed validation, repairing",
				"year", year,
				"failing_months", report.FailingMonths())
			set, err = schema.RepairAll(set, report, p.rules)
			if err != nil {
				return nil, common.NewStageError("schema validation", year, err)
			}
		}
		sets[year] = set
	}

	return sets, nil
}

// laterSets returns the validated sets of every year strictly after the
// target year, ordered ascending.
func laterSets(sets map[int]model.ReleaseSet, year int) []model.ReleaseSet {
	var years []int
	for y := range sets {
		if y > year {
			years = append(years, y)
		}
	}
	sort.Ints(years)

	later := make([]model.ReleaseSet, 0, len(years))
	for _, y := range years {
		later = append(later, sets[y])
	}
	return later
}

// runYear executes assembly, coordinate completion, spatial join, and
// export for one year, checking the row-count invariant at every boundary.
func (p *Pipeline) runYear(ctx context.Context, set model.ReleaseSet, later []model.ReleaseSet) (model.YearTable, YearMetrics, error) {
	year := set.Year

	table := assemble.Assemble(set, later...)
	assembled := table.Len()

	table, completion, err := p.completer.Complete(ctx, table)
	if err != nil {
		return model.YearTable{}, YearMetrics{}, err
	}
	if table.Len() != assembled {
		return model.YearTable{}, YearMetrics{}, common.CountMismatch("coordinate completion", year, assembled, table.Len())
	}

	table, joinStats, err := p.joiner.Join(table)
	if err != nil {
		return model.YearTable{}, YearMetrics{}, err
	}
	if table.Len() != assembled {
		return model.YearTable{}, YearMetrics{}, common.CountMismatch("spatial join", year, assembled, table.Len())
	}

	if _, err := p.writer.WriteYear(table); err != nil {
		return model.YearTable{}, YearMetrics{}, common.NewStageError("export", year, err)
	}

	metrics := YearMetrics{
		Year:          year,
		Records:       completion.Total,
		MissingBefore: completion.MissingBefore,
		MissingAfter:  completion.MissingAfter,
		WithCoords:    joinStats.WithCoords,
		NotJoined:     joinStats.NotJoined,
	}

	return table, metrics, nil
}
