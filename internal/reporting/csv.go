package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the metric matrix as CSV string, one row per
// (metric, scenario) pair.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,metric_id,category,scenario_key,scenario_label,value,error\n")

	// Rows
	for _, row := range r.Metrics {
		for i, cell := range row.Cells {
			col := r.Scenarios[i]
			value := ""
			if cell.Value != nil {
				value = fmt.Sprintf("%.6f", *cell.Value)
			}
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
				r.RunID,
				row.MetricID,
				row.Category,
				col.Key,
				col.Label,
				value,
				csvEscape(cell.Err),
			))
		}
	}

	return sb.String()
}

// RenderSensitivityCSV renders the tornado table as CSV string.
func RenderSensitivityCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("run_id,variable_id,metric_id,base_value,low,high,spread\n")
	for _, row := range r.Sensitivity {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f,%.6f\n",
			r.RunID,
			row.VariableID,
			row.MetricID,
			row.BaseValue,
			row.Low,
			row.High,
			row.Spread,
		))
	}

	return sb.String()
}

func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}
