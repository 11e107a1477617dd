package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/nxneeraj/hx-warden/pkg/types"
)

// MaxEvidenceLength limits the evidence preview when the terminal width is
// unknown.
const MaxEvidenceLength = 120

// TerminalListener returns a store listener that prints each new finding to
// w. Listeners run on scan goroutines, so writes are serialised here.
func TerminalListener(w io.Writer) func(types.Finding) {
	var mu sync.Mutex
	width := previewWidth(w)
	return func(f types.Finding) {
		mu.Lock()
		defer mu.Unlock()
		PrintFindingTerminal(w, f, width)
	}
}

// PrintFindingTerminal formats and prints a single finding with colors.
func PrintFindingTerminal(w io.Writer, f types.Finding, width int) {
	label := SeverityColor(f.Severity)(strings.ToUpper(f.Severity.Label()))
	fmt.Fprintf(w, "[%s] %s - %s\n", label, f.Title, f.URL)
	fmt.Fprintf(w, "  [%s] %s\n", ColorCyan(f.Category), ColorWhite(Preview(f.Evidence, width)))
}

// Preview collapses whitespace in s and cuts it to width characters.
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 3 {
		width = MaxEvidenceLength
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// previewWidth fits the evidence line to the terminal when w is one.
func previewWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return MaxEvidenceLength
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 10 {
		return MaxEvidenceLength
	}
	// leave room for the "  [Category] " prefix
	return cols - 20
}

// FormatDetails renders the full detail view of a finding.
func FormatDetails(f types.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SEVERITY: %s\n", f.Severity.Label())
	fmt.Fprintf(&b, "CATEGORY: %s\n", f.Category)
	fmt.Fprintf(&b, "TITLE: %s\n\n", f.Title)
	fmt.Fprintf(&b, "URL: %s\n\n", f.URL)
	fmt.Fprintf(&b, "DESCRIPTION:\n%s\n\n", f.Description)
	fmt.Fprintf(&b, "EVIDENCE:\n%s\n\n", f.Evidence)
	fmt.Fprintf(&b, "FOUND AT: %s\n", f.FormattedTime())
	return b.String()
}

// Summary is the one-line tally shown under the findings table.
func Summary(total int, bySeverity map[types.Severity]int) string {
	return fmt.Sprintf("Total Issues: %d | High: %d | Medium: %d | Low: %d | Info: %d",
		total,
		bySeverity[types.SeverityHigh],
		bySeverity[types.SeverityMedium],
		bySeverity[types.SeverityLow],
		bySeverity[types.SeverityInfo],
	)
}
