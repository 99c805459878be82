// Package pipeline orchestrates the per-year cleaning run and collects
// stage-boundary metrics.
package pipeline

// YearMetrics holds the counts captured at each transformation boundary
// for one year. Percentages are derived from these captured counts, never
// recomputed by re-scanning the final output, so a silently broken stage
// shows up as a metrics regression.
type YearMetrics struct {
	Year          int
	Records       int // rows entering coordinate completion
	MissingBefore int // rows without coordinates, pre-completion
	MissingAfter  int // rows without coordinates, post-completion
	WithCoords    int // coordinate-bearing rows entering the spatial join
	NotJoined     int // coordinate-bearing rows that matched neither layer
}

// PctMissingBefore is the pre-completion missing-coordinate percentage.
func (m YearMetrics) PctMissingBefore() float64 {
	return pct(m.MissingBefore, m.Records)
}

// PctMissingAfter is the post-completion missing-coordinate percentage.
func (m YearMetrics) PctMissingAfter() float64 {
	return pct(m.MissingAfter, m.Records)
}

// Delta is the percentage-point improvement from coordinate completion.
func (m YearMetrics) Delta() float64 {
	return m.PctMissingBefore() - m.PctMissingAfter()
}

// PctNotJoined is the share of coordinate-bearing records that fell
// outside every polygon in both layers.
func (m YearMetrics) PctNotJoined() float64 {
	return pct(m.NotJoined, m.WithCoords)
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Collector accumulates per-year metrics. It is a value threaded through
// the run and merged functionally; there is no shared mutable state
// between year pipelines.
type Collector struct {
	years []YearMetrics
}

// WithYear returns a new collector including the given year's metrics.
func (c Collector) WithYear(m YearMetrics) Collector {
	years := make([]YearMetrics, 0, len(c.years)+1)
	years = append(years, c.years...)
	years = append(years, m)
	return Collector{years: years}
}

// Years returns the collected per-year metrics in run order.
func (c Collector) Years() []YearMetrics {
	return c.years
}
