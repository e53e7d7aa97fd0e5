package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Project Finance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Metrics: %d | Scenarios: %d\n\n", r.MetricCount, r.ScenarioCount))

	// Metric matrix
	sb.WriteString("## Metrics\n\n")
	if len(r.Metrics) == 0 {
		sb.WriteString("No metric results.\n\n")
	} else {
		sb.WriteString("| Metric | Category |")
		for _, col := range r.Scenarios {
			sb.WriteString(fmt.Sprintf(" %s |", col.Label))
		}
		sb.WriteString("\n")
		sb.WriteString("|--------|----------|")
		for range r.Scenarios {
			sb.WriteString("------|")
		}
		sb.WriteString("\n")
		for _, row := range r.Metrics {
			sb.WriteString(fmt.Sprintf("| %s | %s |", row.MetricID, row.Category))
			for _, cell := range row.Cells {
				sb.WriteString(fmt.Sprintf(" %s |", cellText(cell)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Failed metrics get their own section so errors are not lost in
	// the matrix.
	var failures []string
	for _, row := range r.Metrics {
		for i, cell := range row.Cells {
			if cell.Err != "" {
				failures = append(failures, fmt.Sprintf("- %s (%s): %s", row.MetricID, r.Scenarios[i].Label, cell.Err))
			}
		}
	}
	if len(failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range failures {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Sensitivity tornado
	if len(r.Sensitivity) > 0 {
		sb.WriteString("## Sensitivity\n\n")
		sb.WriteString("| Variable | Metric | Base | Low | High | Spread |\n")
		sb.WriteString("|----------|--------|------|-----|------|--------|\n")
		for _, row := range r.Sensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %.2f |\n",
				row.VariableID, row.MetricID, row.BaseValue, row.Low, row.High, row.Spread))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func cellText(c Cell) string {
	if c.Err != "" {
		return "ERROR"
	}
	if c.Value == nil {
		return "-"
	}
	if c.Formatted != "" {
		return c.Formatted
	}
	return fmt.Sprintf("%.2f", *c.Value)
}
