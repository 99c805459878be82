package schema

import (
	"fmt"

	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/model"
)

// RepairRule maps one known schema deviation onto the canonical layout.
// ColumnMap holds, for each canonical column position, the index of the
// source column in the deviant release.
type RepairRule struct {
	ColumnMap       []int
	Year            int
	Month           int
	ObservedColumns int
}

// DefaultRules covers the deviations observed in the published extracts.
// New deviations are added here; pipeline control flow never changes.
var DefaultRules = []RepairRule{
	// 2017-05 shipped 26 columns: the new administrative block (6 columns)
	// inserted after District, alongside the canonical fields.
	{
		Year:            2017,
		Month:           5,
		ObservedColumns: 26,
		ColumnMap: []int{
			0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
			16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
		},
	},
}

// findRule looks up the repair rule for a release, matching on year, month,
// and observed column count.
func findRule(rules []RepairRule, rel model.MonthlyRelease) (RepairRule, bool) {
	for _, r := range rules {
		if r.Year == rel.Year && r.Month == rel.Month && r.ObservedColumns == rel.ColumnCount() {
			return r, true
		}
	}
	return RepairRule{}, false
}

// RepairMonth normalizes one non-conforming month onto the canonical layout
// and returns a new release set; the input set is never mutated. The caller
// must re-validate the result: a month with no matching rule is returned
// unchanged with ErrNoRepairRule.
func RepairMonth(set model.ReleaseSet, month int, rules []RepairRule) (model.ReleaseSet, error) {
	out := model.ReleaseSet{Year: set.Year}
	out.Releases = make([]model.MonthlyRelease, len(set.Releases))
	copy(out.Releases, set.Releases)

	for i, rel := range out.Releases {
		if rel.Month != month {
			continue
		}
		rule, ok := findRule(rules, rel)
		if !ok {
			return out, fmt.Errorf("%w: %s has %d columns",
				common.ErrNoRepairRule, rel.Label(), rel.ColumnCount())
		}
		out.Releases[i] = applyRule(rel, rule)
		return out, nil
	}

	return out, fmt.Errorf("month %d not present in %d release set", month, set.Year)
}

// RepairAll repairs every failing month in the report. It re-validates the
// result and fails if any month still does not conform, since downstream
// merge logic assumes a uniform schema.
func RepairAll(set model.ReleaseSet, report ValidationReport, rules []RepairRule) (model.ReleaseSet, error) {
	repaired := set
	for _, month := range report.FailingMonths() {
		var err error
		repaired, err = RepairMonth(repaired, month, rules)
		if err != nil {
			return set, err
		}
	}

	recheck := Validate(repaired)
	if !recheck.Valid {
		return set, fmt.Errorf("%w: months %v still non-conforming after repair",
			common.ErrRepairFailed, recheck.FailingMonths())
	}
	return repaired, nil
}

// applyRule rewrites a release onto the canonical layout using the rule's
// column map. Rows shorter than the observed layout are padded.
func applyRule(rel model.MonthlyRelease, rule RepairRule) model.MonthlyRelease {
	out := model.MonthlyRelease{
		Year:   rel.Year,
		Month:  rel.Month,
		Header: append([]string(nil), CanonicalColumns...),
		Rows:   make([][]string, len(rel.Rows)),
	}

	for i, row := range rel.Rows {
		mapped := make([]string, len(rule.ColumnMap))
		for j, src := range rule.ColumnMap {
			if src < len(row) {
				mapped[j] = row[src]
			}
		}
		out.Rows[i] = mapped
	}

	return out
}
