// Package types holds the finding model shared by the rules, store, API and
// reports.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity ranks a finding. Higher values are more severe.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// Categories a finding can be filed under.
const (
	CategoryHeaders     = "Headers"
	CategoryLibraries   = "Libraries"
	CategoryCodeQuality = "Code Quality"
	CategoryCredentials = "Credentials"
)

var severityMeta = map[Severity]struct {
	label string
	color string
}{
	SeverityHigh:   {"High", "#FF4444"},
	SeverityMedium: {"Medium", "#FFA500"},
	SeverityLow:    {"Low", "#FFD700"},
	SeverityInfo:   {"Info", "#4169E1"},
}

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Label is the display name of the severity.
func (s Severity) Label() string {
	if m, ok := severityMeta[s]; ok {
		return m.label
	}
	return "Unknown"
}

// Color is the display color of the severity as a hex RGB string.
func (s Severity) Color() string {
	if m, ok := severityMeta[s]; ok {
		return m.color
	}
	return "#FFFFFF"
}

func (s Severity) String() string { return s.Label() }

func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityMeta[s]; !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(s.Label()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a label such as "high" or "Medium" into a Severity.
func ParseSeverity(label string) (Severity, error) {
	for _, s := range Severities {
		if strings.EqualFold(strings.TrimSpace(label), s.Label()) {
			return s, nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", label)
}

// Key identifies a finding for deduplication. FoundAt and Evidence are not
// part of it, so an issue at a given URL is reported once.
type Key struct {
	URL      string
	Title    string
	Category string
}

// Finding is a single passive security observation.
type Finding struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Evidence    string    `json:"evidence"`
	Category    string    `json:"category"`
	FoundAt     time.Time `json:"found_at"`
}

// NewFinding stamps a finding with a fresh ID and the current capture time.
func NewFinding(url, title, description string, severity Severity, evidence, category string) Finding {
	return Finding{
		ID:          uuid.New().String(),
		URL:         url,
		Title:       title,
		Description: description,
		Severity:    severity,
		Evidence:    evidence,
		Category:    category,
		FoundAt:     time.Now().UTC(),
	}
}

func (f Finding) Key() Key {
	return Key{URL: f.URL, Title: f.Title, Category: f.Category}
}

// FormattedTime renders FoundAt the way the findings table shows it.
func (f Finding) FormattedTime() string {
	return f.FoundAt.Local().Format("2006-01-02 15:04:05")
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s - %s", f.Severity.Label(), f.Title, f.URL)
}

// SortBySeverity orders findings from High to Info, keeping the relative
// order of findings that share a severity.
func SortBySeverity(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity > findings[j].Severity
	})
}
