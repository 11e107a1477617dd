package rules

import (
	"strings"
	"testing"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

func evalBody(body string) []types.Finding {
	return NewLibraryRules(nil).Evaluate("https://site.test/", intercept.NewMessage(nil, body))
}

func TestLibraryRulesScriptSource(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTitle string
		wantSev   types.Severity
		wantCount int
	}{
		{
			name:      "outdated jquery",
			body:      `<script src="/js/jquery-1.11.1.min.js"></script>`,
			wantTitle: "Outdated jQuery Library",
			wantSev:   types.SeverityMedium,
			wantCount: 1,
		},
		{
			name:      "current jquery",
			body:      `<script src="/js/jquery-3.7.1.min.js"></script>`,
			wantCount: 0,
		},
		{
			name:      "newer than table",
			body:      `<script src='/js/jquery-4.0.0.js'></script>`,
			wantCount: 0,
		},
		{
			name:      "unversioned angular",
			body:      `<SCRIPT type="text/javascript" SRC="/lib/angular.min.js"></SCRIPT>`,
			wantTitle: "AngularJS Library Detected",
			wantSev:   types.SeverityInfo,
			wantCount: 1,
		},
		{
			name:      "unknown library",
			body:      `<script src="/app.bundle.js"></script>`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalBody(tt.body)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d findings %v, want %d", len(got), titles(got), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			f := got[0]
			if f.Title != tt.wantTitle || f.Severity != tt.wantSev || f.Category != types.CategoryLibraries {
				t.Errorf("got %s/%s/%s", f.Title, f.Severity, f.Category)
			}
		})
	}
}

func TestLibraryRulesOutdatedDescription(t *testing.T) {
	got := evalBody(`<script src="/js/jquery-1.11.1.min.js"></script>`)
	if len(got) != 1 {
		t.Fatalf("got %d findings, want 1", len(got))
	}
	f := got[0]
	if !strings.Contains(f.Description, "1.11.1") || !strings.Contains(f.Description, "3.7.1") {
		t.Errorf("description should name both versions: %q", f.Description)
	}
	if f.Evidence != "/js/jquery-1.11.1.min.js" {
		t.Errorf("evidence = %q", f.Evidence)
	}
}

func TestLibraryRulesSourceMatchingSeveralSignatures(t *testing.T) {
	got := titles(evalBody(`<script src="/vendor/backbone-underscore.js"></script>`))
	if got["Backbone.js Library Detected"] != 0 {
		t.Errorf("backbone pattern needs .js right after the name: %v", got)
	}
	if got["Underscore.js Library Detected"] != 1 {
		t.Errorf("expected underscore detection, got %v", got)
	}

	got = titles(evalBody(`<script src="/vendor/react.min.js?bootstrap.js"></script>`))
	if got["React Library Detected"] != 1 || got["Bootstrap Library Detected"] != 1 {
		t.Errorf("each matching signature should report independently, got %v", got)
	}
}

func TestLibraryRulesInlineBanner(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "outdated banner",
			body: "<script>\n/*! jQuery v1.11.1 | (c) jQuery Foundation */\n!function(){}()\n</script>",
			want: []string{"Outdated jQuery Library (Inline)"},
		},
		{
			name: "banner without bang or v",
			body: "<script>/* Lodash 4.17.4 */ var _ = {};</script>",
			want: []string{"Outdated Lodash Library (Inline)"},
		},
		{
			name: "current banner",
			body: "<script>/*! jQuery v3.7.1 */</script>",
		},
		{
			name: "only first banner per block",
			body: "<script>/*! jQuery v3.7.1 */ /*! Lodash v4.0.0 */</script>",
		},
		{
			name: "each block has its own first banner",
			body: "<script>/*! jQuery v1.0.0 */</script><script>/*! moment v2.10.0 */</script>",
			want: []string{"Outdated jQuery Library (Inline)", "Outdated Moment.js Library (Inline)"},
		},
		{
			name: "unknown library",
			body: "<script>/*! dojo v1.0.0 */</script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalBody(tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", titles(got), tt.want)
			}
			for i, title := range tt.want {
				if got[i].Title != title || got[i].Severity != types.SeverityMedium {
					t.Errorf("finding %d = %s/%s, want %s/Medium", i, got[i].Title, got[i].Severity, title)
				}
			}
		})
	}
}

func TestLibraryRulesVulnerablePatterns(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		title    string
		severity types.Severity
		category string
	}{
		{"eval", `<script>eval(userInput)</script>`, "Dangerous JavaScript Function Usage", types.SeverityHigh, types.CategoryCodeQuality},
		{"function constructor", `var f = new Function("return 1")`, "Dangerous JavaScript Function Usage", types.SeverityHigh, types.CategoryCodeQuality},
		{"innerHTML multi-line", "line one\nel.innerHTML = data;\nline three", "Potential DOM-based XSS", types.SeverityMedium, types.CategoryCodeQuality},
		{"innerHTML case", "EL.INNERHTML  =x", "Potential DOM-based XSS", types.SeverityMedium, types.CategoryCodeQuality},
		{"credential", `var config = { api_key: "abcdefghijklmnopqrstuvwxyz012345" };`, "Potential Exposed Credentials", types.SeverityHigh, types.CategoryCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalBody(tt.body)
			if len(got) != 1 {
				t.Fatalf("got %v, want one %q", titles(got), tt.title)
			}
			if got[0].Title != tt.title || got[0].Severity != tt.severity || got[0].Category != tt.category {
				t.Errorf("got %s/%s/%s", got[0].Title, got[0].Severity, got[0].Category)
			}
		})
	}
}

func TestLibraryRulesCredentialEvidenceTruncated(t *testing.T) {
	secret := strings.Repeat("x", 80)
	got := evalBody(`password = "` + secret + `"`)
	if len(got) != 1 {
		t.Fatalf("got %v", titles(got))
	}
	ev := got[0].Evidence
	if !strings.HasPrefix(ev, "Pattern: password = \"") || !strings.HasSuffix(ev, "...") {
		t.Errorf("evidence = %q", ev)
	}
	if n := len(strings.TrimSuffix(strings.TrimPrefix(ev, "Pattern: "), "...")); n != 50 {
		t.Errorf("evidence keeps %d characters of the match, want 50", n)
	}
}

func TestLibraryRulesShortSecretIgnored(t *testing.T) {
	if got := evalBody(`token: "short"`); len(got) != 0 {
		t.Errorf("got %v", titles(got))
	}
}

func TestLibraryRulesCleanBody(t *testing.T) {
	if got := evalBody(`<html><body><p>hello</p><script src="/app.js"></script></body></html>`); len(got) != 0 {
		t.Errorf("got %v", titles(got))
	}
}
