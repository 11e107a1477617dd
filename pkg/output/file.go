package output

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/config"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

// Report is the JSON document written by --o-json.
type Report struct {
	Scanner    string          `json:"scanner"`
	Total      int             `json:"total"`
	BySeverity map[string]int  `json:"by_severity"`
	ByCategory map[string]int  `json:"by_category"`
	Findings   []types.Finding `json:"findings"`
}

// NewReport sorts findings by severity and tallies them.
func NewReport(findings []types.Finding) Report {
	sorted := make([]types.Finding, len(findings))
	copy(sorted, findings)
	types.SortBySeverity(sorted)

	rep := Report{
		Scanner:    "hx-warden",
		Total:      len(sorted),
		BySeverity: make(map[string]int),
		ByCategory: make(map[string]int),
		Findings:   sorted,
	}
	for _, f := range sorted {
		rep.BySeverity[f.Severity.Label()]++
		rep.ByCategory[f.Category]++
	}
	return rep
}

// WriteFindingsToFile writes the reports requested in cfg. Every requested
// file is attempted; the first error is returned.
func WriteFindingsToFile(cfg *config.Config, findings []types.Finding, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var writeErr error

	// -o: plain text, one finding per block
	if cfg.OutputFile != "" {
		if err := writeOutputPlain(cfg.OutputFile, findings); err != nil {
			log.Errorf("Failed to write plain output to %s: %v", cfg.OutputFile, err)
			writeErr = err
		} else {
			log.Infof("Findings saved to: %s", cfg.OutputFile)
		}
	}

	// --o-json: full JSON report
	if cfg.OutputJSON != "" {
		if err := writeOutputJSON(cfg.OutputJSON, findings); err != nil {
			log.Errorf("Failed to write JSON output to %s: %v", cfg.OutputJSON, err)
			if writeErr == nil {
				writeErr = err
			}
		} else {
			log.Infof("JSON report saved to: %s", cfg.OutputJSON)
		}
	}

	return writeErr
}

func writeOutputPlain(filename string, findings []types.Finding) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer file.Close()

	rep := NewReport(findings)
	if rep.Total == 0 {
		_, err := fmt.Fprintln(file, "No issues found.")
		return err
	}
	for _, f := range rep.Findings {
		if _, err := fmt.Fprintf(file, "%s\n%s\n", FormatDetails(f), "--------------------------------------------------------------------------------"); err != nil {
			return err
		}
	}
	return nil
}

func writeOutputJSON(filename string, findings []types.Finding) error {
	jsonData, err := json.MarshalIndent(NewReport(findings), "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	// Add trailing newline for POSIX compatibility
	jsonData = append(jsonData, '\n')
	return os.WriteFile(filename, jsonData, 0o644)
}
