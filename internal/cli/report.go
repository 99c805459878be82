package cli

import (
	"fmt"
	"strings"

	"github.com/opencitydata/crimepipe/internal/pipeline"
	"github.com/opencitydata/crimepipe/internal/schema"
)

// RenderMetrics formats the per-year pipeline metrics as a console table.
func RenderMetrics(collector pipeline.Collector) string {
	var b strings.Builder

	header := fmt.Sprintf("%-6s %10s %14s %14s %9s %12s",
		"Year", "Records", "% Missing Pre", "% Missing Post", "Delta", "% Not Joined")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, m := range collector.Years() {
		b.WriteString(fmt.Sprintf("%-6d %10d %13.1f%% %13.1f%% %8.1f%% %11.1f%%\n",
			m.Year, m.Records,
			m.PctMissingBefore(), m.PctMissingAfter(), m.Delta(), m.PctNotJoined()))
	}

	return RenderBox("Missing Data & Join Summary", strings.TrimRight(b.String(), "\n"))
}

// RenderValidation formats a per-month structural validation report.
func RenderValidation(report schema.ValidationReport) string {
	var b strings.Builder

	header := fmt.Sprintf("%-9s %9s %7s  %s", "Month", "Expected", "Actual", "Status")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, m := range report.Months {
		status := FormatSuccess("ok")
		if !m.OK {
			status = FormatError("non-conforming")
		}
		b.WriteString(fmt.Sprintf("%-9s %9d %7d  %s\n", m.Label, m.Expected, m.Actual, status))
	}

	title := fmt.Sprintf("%d Schema Validation", report.Year)
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}
