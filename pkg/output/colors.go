package output

import (
	"github.com/fatih/color"

	"github.com/nxneeraj/hx-warden/pkg/types"
)

// Define color functions for terminal output
var (
	ColorRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	ColorOrange = color.New(color.FgHiRed).SprintFunc() // closest ANSI match for Medium's orange
	ColorYellow = color.New(color.FgYellow).SprintFunc()
	ColorBlue   = color.New(color.FgBlue).SprintFunc()
	ColorCyan   = color.New(color.FgCyan).SprintFunc()
	ColorWhite  = color.New(color.FgWhite).SprintFunc()
)

// SeverityColor returns the terminal color function for a severity.
func SeverityColor(s types.Severity) func(a ...interface{}) string {
	switch s {
	case types.SeverityHigh:
		return ColorRed
	case types.SeverityMedium:
		return ColorOrange
	case types.SeverityLow:
		return ColorYellow
	default:
		return ColorBlue
	}
}

// DisableColor turns off ANSI colors for every writer in this package.
func DisableColor() {
	color.NoColor = true
}
