// Package rules holds the stateless checks run against intercepted responses.
package rules

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

// Engine evaluates one intercepted response and returns what it found.
// Implementations must be safe to call from many goroutines at once.
type Engine interface {
	Evaluate(url string, resp intercept.Response) []types.Finding
}

var serverVersionPattern = regexp.MustCompile(`\d+\.\d+`)

// missingHeaderRule fires when a single header is absent.
type missingHeaderRule struct {
	header      string
	title       string
	description string
	severity    types.Severity
	httpsOnly   bool
}

var missingHeaderRules = []missingHeaderRule{
	{
		header:      "X-Content-Type-Options",
		title:       "Missing X-Content-Type-Options",
		description: "The response does not include X-Content-Type-Options header, allowing MIME type sniffing attacks.",
		severity:    types.SeverityLow,
	},
	{
		header:      "Strict-Transport-Security",
		title:       "Missing HSTS Header",
		description: "The HTTPS response does not include Strict-Transport-Security header, allowing potential downgrade attacks.",
		severity:    types.SeverityMedium,
		httpsOnly:   true,
	},
	{
		header:      "Content-Security-Policy",
		title:       "Missing Content-Security-Policy",
		description: "The response does not include a Content-Security-Policy header, increasing risk of XSS attacks.",
		severity:    types.SeverityMedium,
	},
	{
		header:      "Referrer-Policy",
		title:       "Missing Referrer-Policy",
		description: "The response does not include a Referrer-Policy header, potentially leaking sensitive information in the Referer header.",
		severity:    types.SeverityLow,
	},
	{
		header:      "Permissions-Policy",
		title:       "Missing Permissions-Policy",
		description: "The response does not include a Permissions-Policy header to control browser features.",
		severity:    types.SeverityInfo,
	},
}

// HeaderRules checks security headers, cookie flags and CORS policy.
type HeaderRules struct{}

func NewHeaderRules() *HeaderRules { return &HeaderRules{} }

// Evaluate runs every header rule against resp. Rules are independent; only
// the two CORS rules exclude each other.
func (h *HeaderRules) Evaluate(rawURL string, resp intercept.Response) []types.Finding {
	var findings []types.Finding
	https := isHTTPS(rawURL)

	if !resp.HasHeader("X-Frame-Options") && !resp.HasHeader("Content-Security-Policy") {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Missing Clickjacking Protection",
			"The response does not include X-Frame-Options or CSP frame-ancestors directive, making it vulnerable to clickjacking attacks.",
			types.SeverityMedium,
			"No X-Frame-Options or CSP frame-ancestors header found",
			types.CategoryHeaders,
		))
	}

	for _, rule := range missingHeaderRules {
		if rule.httpsOnly && !https {
			continue
		}
		if resp.HasHeader(rule.header) {
			continue
		}
		evidence := "No " + rule.header + " header found"
		if rule.httpsOnly {
			evidence += " on HTTPS response"
		}
		findings = append(findings, types.NewFinding(rawURL, rule.title, rule.description, rule.severity, evidence, types.CategoryHeaders))
	}

	findings = append(findings, disclosureFindings(rawURL, resp)...)
	findings = append(findings, cookieFindings(rawURL, resp, https)...)
	findings = append(findings, corsFindings(rawURL, resp)...)

	return findings
}

func disclosureFindings(rawURL string, resp intercept.Response) []types.Finding {
	var findings []types.Finding

	if server, ok := resp.HeaderValue("Server"); ok && server != "" && serverVersionPattern.MatchString(server) {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Server Version Disclosure",
			"The Server header reveals version information that could aid attackers.",
			types.SeverityLow,
			"Server: "+server,
			types.CategoryHeaders,
		))
	}

	if poweredBy, ok := resp.HeaderValue("X-Powered-By"); ok && poweredBy != "" {
		findings = append(findings, types.NewFinding(
			rawURL,
			"Technology Stack Disclosure",
			"The X-Powered-By header reveals technology information that could aid attackers.",
			types.SeverityLow,
			"X-Powered-By: "+poweredBy,
			types.CategoryHeaders,
		))
	}

	return findings
}

// cookieFindings evaluates each Set-Cookie occurrence on its own; one cookie
// can yield up to three findings.
func cookieFindings(rawURL string, resp intercept.Response, https bool) []types.Finding {
	var findings []types.Finding

	for _, h := range resp.Headers() {
		if !strings.EqualFold(h.Name, "Set-Cookie") {
			continue
		}
		cookie := h.Value
		lower := strings.ToLower(cookie)
		evidence := "Set-Cookie: " + cookie

		if !strings.Contains(lower, "httponly") {
			findings = append(findings, types.NewFinding(
				rawURL,
				"Cookie Without HttpOnly Flag",
				"A cookie is set without the HttpOnly flag, making it accessible to JavaScript and vulnerable to XSS attacks.",
				types.SeverityMedium,
				evidence,
				types.CategoryHeaders,
			))
		}

		if https && !strings.Contains(lower, "secure") {
			findings = append(findings, types.NewFinding(
				rawURL,
				"Cookie Without Secure Flag",
				"A cookie is set over HTTPS without the Secure flag, allowing it to be sent over insecure HTTP connections.",
				types.SeverityMedium,
				evidence,
				types.CategoryHeaders,
			))
		}

		if !strings.Contains(lower, "samesite") {
			findings = append(findings, types.NewFinding(
				rawURL,
				"Cookie Without SameSite Attribute",
				"A cookie is set without the SameSite attribute, making it vulnerable to CSRF attacks.",
				types.SeverityMedium,
				evidence,
				types.CategoryHeaders,
			))
		}
	}

	return findings
}

func corsFindings(rawURL string, resp intercept.Response) []types.Finding {
	origin, ok := resp.HeaderValue("Access-Control-Allow-Origin")
	if !ok || origin != "*" {
		return nil
	}

	if creds, _ := resp.HeaderValue("Access-Control-Allow-Credentials"); strings.EqualFold(creds, "true") {
		return []types.Finding{types.NewFinding(
			rawURL,
			"Insecure CORS Configuration",
			"The response allows any origin (*) with credentials, which is a severe security misconfiguration.",
			types.SeverityHigh,
			"Access-Control-Allow-Origin: * with Access-Control-Allow-Credentials: true",
			types.CategoryHeaders,
		)}
	}

	return []types.Finding{types.NewFinding(
		rawURL,
		"Permissive CORS Policy",
		"The response allows requests from any origin (*), which may be overly permissive.",
		types.SeverityLow,
		"Access-Control-Allow-Origin: *",
		types.CategoryHeaders,
	)}
}

func isHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(rawURL), "https://")
	}
	return strings.EqualFold(u.Scheme, "https")
}
