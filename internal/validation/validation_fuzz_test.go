package validation

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
)

func FuzzValidateRelativePath(f *testing.F) {
	f.Add("components/counter.html")
	f.Add("../secret")
	f.Add("a/../../b")
	f.Add("/etc/passwd")
	f.Add("./a/./b/../c")
	f.Add("a\x00b")
	f.Add("")

	f.Fuzz(func(t *testing.T, path string) {
		if ValidateRelativePath(path) != nil {
			return
		}
		clean := filepath.Clean(path)
		if filepath.IsAbs(clean) {
			t.Errorf("accepted absolute path %q", path)
		}
		if clean == ".." || strings.HasPrefix(clean, "../") {
			t.Errorf("accepted traversal %q", path)
		}
	})
}

func FuzzValidateURL(f *testing.F) {
	f.Add("http://localhost:8080")
	f.Add("https://example.com")
	f.Add("javascript:alert('xss')")
	f.Add("data:text/html,<script>alert('xss')</script>")
	f.Add("http://localhost:8080; rm -rf /")
	f.Add("http://localhost:8080`whoami`")
	f.Add("http://localhost:8080\r\nHost: malicious.com")
	f.Add("http://")

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 5000 {
			t.Skip("URL too long")
		}
		if ValidateURL(raw) != nil {
			return
		}

		parsed, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("accepted unparsable URL %q", raw)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			t.Errorf("accepted scheme %q", parsed.Scheme)
		}
		if parsed.Host == "" {
			t.Errorf("accepted URL without host %q", raw)
		}
		if strings.ContainsAny(raw, ";&|`$()<>\"'\\\n\r\t ") {
			t.Errorf("accepted dangerous character in %q", raw)
		}
	})
}

func FuzzValidateOrigin(f *testing.F) {
	f.Add("http://localhost:8080")
	f.Add("http://localhost:8080.evil.com")
	f.Add("http://evil.com#http://localhost:8080")
	f.Add("https://localhost:8080")

	allowed := []string{"http://localhost:8080"}
	f.Fuzz(func(t *testing.T, origin string) {
		if ValidateOrigin(origin, allowed) != nil {
			return
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme != "http" || u.Host != "localhost:8080" {
			t.Errorf("accepted foreign origin %q", origin)
		}
	})
}
