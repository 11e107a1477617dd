package rules

import (
	"testing"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

// hardened carries every header the missing-header rules look for.
var hardened = []intercept.Header{
	{Name: "X-Frame-Options", Value: "DENY"},
	{Name: "X-Content-Type-Options", Value: "nosniff"},
	{Name: "Strict-Transport-Security", Value: "max-age=31536000"},
	{Name: "Content-Security-Policy", Value: "default-src 'self'"},
	{Name: "Referrer-Policy", Value: "no-referrer"},
	{Name: "Permissions-Policy", Value: "camera=()"},
}

func withHeaders(extra ...intercept.Header) intercept.Response {
	return intercept.NewMessage(append(append([]intercept.Header{}, hardened...), extra...), "")
}

func titles(findings []types.Finding) map[string]int {
	out := make(map[string]int)
	for _, f := range findings {
		out[f.Title]++
	}
	return out
}

func TestHeaderRulesMissingHeaders(t *testing.T) {
	got := titles(NewHeaderRules().Evaluate("https://example.com/", intercept.NewMessage(nil, "")))

	want := []string{
		"Missing Clickjacking Protection",
		"Missing X-Content-Type-Options",
		"Missing HSTS Header",
		"Missing Content-Security-Policy",
		"Missing Referrer-Policy",
		"Missing Permissions-Policy",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d distinct findings %v, want %d", len(got), got, len(want))
	}
	for _, title := range want {
		if got[title] != 1 {
			t.Errorf("%q fired %d times, want 1", title, got[title])
		}
	}
}

func TestHeaderRulesHardenedResponseIsClean(t *testing.T) {
	if got := NewHeaderRules().Evaluate("https://example.com/", withHeaders()); len(got) != 0 {
		t.Errorf("expected no findings, got %v", titles(got))
	}
}

func TestHeaderRulesClickjackingSatisfiedByCSP(t *testing.T) {
	resp := intercept.NewMessage([]intercept.Header{{Name: "Content-Security-Policy", Value: "frame-ancestors 'none'"}}, "")
	got := titles(NewHeaderRules().Evaluate("http://example.com/", resp))
	if got["Missing Clickjacking Protection"] != 0 {
		t.Error("clickjacking rule fired although CSP is present")
	}
}

func TestHeaderRulesHSTSSchemeGating(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://example.com", 1},
		{"HTTPS://example.com/login", 1},
		{"http://example.com", 0},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := titles(NewHeaderRules().Evaluate(tt.url, intercept.NewMessage(nil, "")))
			if got["Missing HSTS Header"] != tt.want {
				t.Errorf("Missing HSTS Header fired %d times, want %d", got["Missing HSTS Header"], tt.want)
			}
		})
	}
}

func TestHeaderRulesDisclosure(t *testing.T) {
	tests := []struct {
		name   string
		header intercept.Header
		title  string
		want   int
	}{
		{"versioned server", intercept.Header{Name: "Server", Value: "nginx/1.18.0"}, "Server Version Disclosure", 1},
		{"bare server", intercept.Header{Name: "Server", Value: "nginx"}, "Server Version Disclosure", 0},
		{"empty server", intercept.Header{Name: "Server", Value: ""}, "Server Version Disclosure", 0},
		{"powered by", intercept.Header{Name: "X-Powered-By", Value: "PHP/8.1"}, "Technology Stack Disclosure", 1},
		{"empty powered by", intercept.Header{Name: "X-Powered-By", Value: ""}, "Technology Stack Disclosure", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := NewHeaderRules().Evaluate("https://example.com/", withHeaders(tt.header))
			if got := titles(findings)[tt.title]; got != tt.want {
				t.Errorf("%q fired %d times, want %d", tt.title, got, tt.want)
			}
			for _, f := range findings {
				if f.Title == tt.title && f.Evidence != tt.header.Name+": "+tt.header.Value {
					t.Errorf("evidence = %q", f.Evidence)
				}
			}
		})
	}
}

func TestHeaderRulesCookiesPerOccurrence(t *testing.T) {
	resp := withHeaders(
		intercept.Header{Name: "Set-Cookie", Value: "session=abc; Secure; SameSite=Lax"},
		intercept.Header{Name: "Set-Cookie", Value: "pref=dark; Secure; HttpOnly"},
	)
	findings := NewHeaderRules().Evaluate("https://example.com/", resp)

	if len(findings) != 2 {
		t.Fatalf("got %d findings %v, want 2", len(findings), titles(findings))
	}
	got := titles(findings)
	if got["Cookie Without HttpOnly Flag"] != 1 || got["Cookie Without SameSite Attribute"] != 1 {
		t.Errorf("unexpected cookie findings: %v", got)
	}
	for _, f := range findings {
		switch f.Title {
		case "Cookie Without HttpOnly Flag":
			if f.Evidence != "Set-Cookie: session=abc; Secure; SameSite=Lax" {
				t.Errorf("HttpOnly evidence = %q", f.Evidence)
			}
		case "Cookie Without SameSite Attribute":
			if f.Evidence != "Set-Cookie: pref=dark; Secure; HttpOnly" {
				t.Errorf("SameSite evidence = %q", f.Evidence)
			}
		}
	}
}

func TestHeaderRulesCookieSecureOnlyOverHTTPS(t *testing.T) {
	cookie := intercept.Header{Name: "Set-Cookie", Value: "id=1"}

	https := titles(NewHeaderRules().Evaluate("https://example.com/", withHeaders(cookie)))
	if https["Cookie Without Secure Flag"] != 1 {
		t.Error("Secure rule should fire over https")
	}
	if https["Cookie Without HttpOnly Flag"] != 1 || https["Cookie Without SameSite Attribute"] != 1 {
		t.Errorf("expected all three cookie rules, got %v", https)
	}

	plain := titles(NewHeaderRules().Evaluate("http://example.com/", withHeaders(cookie)))
	if plain["Cookie Without Secure Flag"] != 0 {
		t.Error("Secure rule should not fire over http")
	}
}

func TestHeaderRulesCORSExclusive(t *testing.T) {
	tests := []struct {
		name      string
		headers   []intercept.Header
		wantTitle string
		wantSev   types.Severity
	}{
		{
			name:      "wildcard with credentials",
			headers:   []intercept.Header{{Name: "Access-Control-Allow-Origin", Value: "*"}, {Name: "Access-Control-Allow-Credentials", Value: "TRUE"}},
			wantTitle: "Insecure CORS Configuration",
			wantSev:   types.SeverityHigh,
		},
		{
			name:      "wildcard only",
			headers:   []intercept.Header{{Name: "Access-Control-Allow-Origin", Value: "*"}},
			wantTitle: "Permissive CORS Policy",
			wantSev:   types.SeverityLow,
		},
		{
			name:      "wildcard with credentials false",
			headers:   []intercept.Header{{Name: "Access-Control-Allow-Origin", Value: "*"}, {Name: "Access-Control-Allow-Credentials", Value: "false"}},
			wantTitle: "Permissive CORS Policy",
			wantSev:   types.SeverityLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := NewHeaderRules().Evaluate("https://api.example.com/", withHeaders(tt.headers...))
			if len(findings) != 1 {
				t.Fatalf("got %d findings %v, want exactly 1", len(findings), titles(findings))
			}
			if findings[0].Title != tt.wantTitle || findings[0].Severity != tt.wantSev {
				t.Errorf("got %s/%s, want %s/%s", findings[0].Title, findings[0].Severity, tt.wantTitle, tt.wantSev)
			}
		})
	}

	specific := withHeaders(intercept.Header{Name: "Access-Control-Allow-Origin", Value: "https://app.example.com"})
	if got := NewHeaderRules().Evaluate("https://api.example.com/", specific); len(got) != 0 {
		t.Errorf("specific origin should not fire, got %v", titles(got))
	}
}

func TestHeaderRulesCategory(t *testing.T) {
	for _, f := range NewHeaderRules().Evaluate("https://example.com/", intercept.NewMessage(nil, "")) {
		if f.Category != types.CategoryHeaders {
			t.Errorf("%q has category %q", f.Title, f.Category)
		}
		if f.URL != "https://example.com/" {
			t.Errorf("%q has url %q", f.Title, f.URL)
		}
	}
}
