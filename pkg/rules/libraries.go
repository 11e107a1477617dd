package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/signatures"
	"github.com/nxneeraj/hx-warden/pkg/types"
	"github.com/nxneeraj/hx-warden/pkg/version"
)

var (
	scriptSrcPattern    = regexp.MustCompile(`(?i)<script[^>]*src=["']([^"']+)["'][^>]*>`)
	inlineScriptPattern = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	bannerPattern       = regexp.MustCompile(`(?i)/\*!?\s*([A-Za-z.]+)\s+v?([0-9.]+)`)

	innerHTMLPattern  = regexp.MustCompile(`(?i)innerHTML\s*=`)
	credentialPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|password|token)\s*[:=]\s*['"]([^'"]{20,})['"]`)
)

const credentialEvidenceLen = 50

// LibraryRules looks for outdated front-end libraries and dangerous script
// patterns in response bodies.
type LibraryRules struct {
	table *signatures.Table
}

// NewLibraryRules returns an engine backed by table, or by the built-in
// table when table is nil.
func NewLibraryRules(table *signatures.Table) *LibraryRules {
	if table == nil {
		table = signatures.Default()
	}
	return &LibraryRules{table: table}
}

// Evaluate runs the script-source, inline banner and vulnerable pattern scans.
func (l *LibraryRules) Evaluate(rawURL string, resp intercept.Response) []types.Finding {
	body := resp.Body()
	var findings []types.Finding

	for _, m := range scriptSrcPattern.FindAllStringSubmatch(body, -1) {
		findings = append(findings, l.checkScriptSource(rawURL, m[1])...)
	}

	for _, m := range inlineScriptPattern.FindAllStringSubmatch(body, -1) {
		findings = append(findings, l.checkInlineScript(rawURL, m[1])...)
	}

	findings = append(findings, checkVulnerablePatterns(rawURL, body)...)
	return findings
}

// checkScriptSource tests one script src against every signature. A source
// may match several signatures.
func (l *LibraryRules) checkScriptSource(rawURL, src string) []types.Finding {
	var findings []types.Finding

	for _, sig := range l.table.All() {
		m := sig.Pattern.FindStringSubmatch(src)
		if m == nil {
			continue
		}
		detected := ""
		if len(m) > 1 {
			detected = m[1]
		}

		if detected == "" {
			findings = append(findings, types.NewFinding(
				rawURL,
				sig.Name+" Library Detected",
				fmt.Sprintf("The application is using %s but version could not be determined. Latest version is %s.",
					sig.Name, sig.LatestVersion),
				types.SeverityInfo,
				src,
				types.CategoryLibraries,
			))
			continue
		}

		if version.IsOutdated(detected, sig.LatestVersion) {
			findings = append(findings, types.NewFinding(
				rawURL,
				"Outdated "+sig.Name+" Library",
				fmt.Sprintf("The application is using %s version %s. Latest version is %s. Outdated libraries may contain known vulnerabilities.",
					sig.Name, detected, sig.LatestVersion),
				types.SeverityMedium,
				src,
				types.CategoryLibraries,
			))
		}
	}

	return findings
}

// checkInlineScript reads the first version banner of a script block, such as
// "/*! jQuery v1.11.1 */". Later banners in the same block are ignored.
func (l *LibraryRules) checkInlineScript(rawURL, content string) []types.Finding {
	m := bannerPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	libName := strings.ToLower(m[1])
	detected := m[2]

	var findings []types.Finding
	for _, sig := range l.table.All() {
		if !strings.Contains(libName, sig.Key) {
			continue
		}
		if !version.IsOutdated(detected, sig.LatestVersion) {
			continue
		}
		findings = append(findings, types.NewFinding(
			rawURL,
			"Outdated "+sig.Name+" Library (Inline)",
			fmt.Sprintf("Inline %s version %s detected. Latest version is %s.", sig.Name, detected, sig.LatestVersion),
			types.SeverityMedium,
			"Version "+detected+" in inline script",
			types.CategoryLibraries,
		))
	}
	return findings
}

func checkVulnerablePatterns(rawURL, body string) []types.Finding {
	var findings []types.Finding

	if strings.Contains(body, "eval(") || strings.Contains(body, "Function(") {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Dangerous JavaScript Function Usage",
			"The page contains usage of eval() or Function() constructor which can lead to code injection vulnerabilities.",
			types.SeverityHigh,
			"eval() or Function() detected in page",
			types.CategoryCodeQuality,
		))
	}

	// Matches anywhere in the body, including multi-line documents.
	if innerHTMLPattern.MatchString(body) {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Potential DOM-based XSS",
			"The page uses innerHTML assignment which could lead to DOM-based XSS if user input is not properly sanitized.",
			types.SeverityMedium,
			"innerHTML usage detected",
			types.CategoryCodeQuality,
		))
	}

	if match := credentialPattern.FindString(body); match != "" {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Potential Exposed Credentials",
			"The page appears to contain hardcoded API keys, secrets, or credentials in JavaScript code.",
			types.SeverityHigh,
			"Pattern: "+truncate(match, credentialEvidenceLen)+"...",
			types.CategoryCredentials,
		))
	}

	return findings
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
