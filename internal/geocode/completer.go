package geocode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/model"
	"github.com/opencitydata/crimepipe/internal/spatial"
)

// Cache stores geocode results keyed by normalized address query, so
// repeated runs don't re-hit the service for the same addresses.
type Cache interface {
	Get(ctx context.Context, query string) (model.GeocodeResult, bool, error)
	Put(ctx context.Context, query string, result model.GeocodeResult) error
}

// CompletionStats captures the coordinate-completion boundary counts for
// the metrics collector.
type CompletionStats struct {
	Total         int
	MissingBefore int
	MissingAfter  int
}

// Completer fills in missing coordinates: records that already carry
// coordinates are reprojected to WGS-84, the rest are geocoded in one
// batch per year.
type Completer struct {
	service Service
	cache   Cache
}

// NewCompleter creates a completer over the geocoding service. cache may
// be nil to disable caching.
func NewCompleter(service Service, cache Cache) *Completer {
	return &Completer{service: service, cache: cache}
}

// Complete partitions the table by coordinate presence, geocodes the
// missing partition, and reconciles both partitions back into one table
// with an identical schema on both paths. A record that fails to geocode
// keeps nil coordinates and proceeds; that is expected, not an error.
// The output always has exactly as many records as the input.
func (c *Completer) Complete(ctx context.Context, table model.YearTable) (model.YearTable, CompletionStats, error) {
	// Explicit partition by index; reconciliation concatenates the two
	// sides, never re-interleaves positionally.
	var hasXY, missingXY []int
	for i := range table.Records {
		if table.Records[i].HasCoordinates() {
			hasXY = append(hasXY, i)
		} else {
			missingXY = append(missingXY, i)
		}
	}

	stats := CompletionStats{
		Total:         table.Len(),
		MissingBefore: len(missingXY),
	}

	out := model.YearTable{Year: table.Year}
	out.Records = make([]model.Incident, 0, table.Len())

	// Source coordinates are State Plane feet; the cleaned table carries
	// WGS-84 lon/lat.
	for _, i := range hasXY {
		rec := table.Records[i]
		lat, lon := spatial.StatePlaneToWGS84(*rec.X, *rec.Y)
		rec.X = &lon
		rec.Y = &lat
		out.Records = append(out.Records, rec)
	}

	resolved, err := c.geocodeMissing(ctx, table, missingXY)
	if err != nil {
		return model.YearTable{}, CompletionStats{}, err
	}
	for _, i := range missingXY {
		rec := table.Records[i]
		res := resolved[i]
		rec.GeocodeTier = res.Tier
		rec.GeocodeAddr = res.Address
		if res.Tier != "" {
			score := res.Score
			rec.GeocodeScore = &score
		}
		if res.Resolved {
			rec.X = res.X
			rec.Y = res.Y
		} else {
			stats.MissingAfter++
		}
		out.Records = append(out.Records, rec)
	}

	if out.Len() != table.Len() {
		return model.YearTable{}, CompletionStats{}, common.CountMismatch("coordinate completion", table.Year, table.Len(), out.Len())
	}

	slog.Info("Coordinate completion finished",
		"year", table.Year,
		"records", stats.Total,
		"missing_before", stats.MissingBefore,
		"missing_after", stats.MissingAfter)

	return out, stats, nil
}

// geocodeMissing resolves queries for the missing partition, serving what
// it can from the cache and sending the remainder to the service as one
// batch. Results come back keyed by original record index.
func (c *Completer) geocodeMissing(ctx context.Context, table model.YearTable, missingXY []int) (map[int]model.GeocodeResult, error) {
	resolved := make(map[int]model.GeocodeResult, len(missingXY))
	if len(missingXY) == 0 {
		return resolved, nil
	}

	var uncachedIdx []int
	var queries []string

	for _, i := range missingXY {
		query := BuildQuery(table.Records[i])
		if query == "" {
			resolved[i] = model.GeocodeResult{}
			continue
		}
		if c.cache != nil {
			if cached, ok, err := c.cache.Get(ctx, query); err != nil {
				return nil, fmt.Errorf("geocode cache read: %w", err)
			} else if ok {
				resolved[i] = cached
				continue
			}
		}
		uncachedIdx = append(uncachedIdx, i)
		queries = append(queries, query)
	}

	slog.Debug("Geocoding missing coordinates",
		"year", table.Year,
		"missing", len(missingXY),
		"cached", len(missingXY)-len(uncachedIdx),
		"to_service", len(queries))

	if len(queries) == 0 {
		return resolved, nil
	}

	results, err := c.service.GeocodeBatch(ctx, queries)
	if err != nil {
		return nil, common.NewStageError("coordinate completion", table.Year, err)
	}
	if len(results) != len(queries) {
		return nil, common.CountMismatch("geocode batch", table.Year, len(queries), len(results))
	}

	bar := progressbar.Default(int64(len(results)), "reconciling geocodes")
	for j, res := range results {
		i := uncachedIdx[j]
		resolved[i] = res
		if c.cache != nil {
			if err := c.cache.Put(ctx, queries[j], res); err != nil {
				return nil, fmt.Errorf("geocode cache write: %w", err)
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	return resolved, nil
}
