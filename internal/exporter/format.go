package exporter

import (
	"math"
	"strconv"
)

// formatCell formats a table cell for CSV output. Missing markers become
// empty cells, everything else keeps full precision.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
