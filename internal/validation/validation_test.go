package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file", "components/counter.html", false},
		{"dot prefix", "./components", false},
		{"inner dots", "a/../b.html", false},
		{"hidden dir", ".unobtrusive/cache", false},
		{"dots in name", "..hidden/file", false},
		{"empty", "", true},
		{"parent", "..", true},
		{"traversal", "../secret.html", true},
		{"nested traversal", "a/../../secret.html", true},
		{"absolute", "/etc/passwd", true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	for _, host := range []string{"localhost", "0.0.0.0", "127.0.0.1", "::1", "dev.example.com", "my-host"} {
		assert.NoError(t, ValidateHostname(host), host)
	}
	for _, host := range []string{"localhost;rm", "-bad", "bad-", "a..b", "host name", "$(id)"} {
		assert.Error(t, ValidateHostname(host), host)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https", "https://example.com", false},
		{"path", "http://127.0.0.1:3000/preview", false},
		{"javascript", "javascript:alert(1)", true},
		{"file", "file:///etc/passwd", true},
		{"ftp", "ftp://example.com", true},
		{"no host", "http://", true},
		{"injection", "http://localhost:8080;rm", true},
		{"space", "http://localhost:8080 x", true},
		{"newline", "http://localhost:8080\nHost: x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		wantErr bool
	}{
		{"http://localhost:8080", []string{"http://localhost:8080"}, false},
		{"http://localhost:8080", []string{"http://other:1", "http://localhost:8080"}, false},
		{"https://localhost:8080", []string{"http://localhost:8080"}, true},
		{"http://localhost:3000", []string{"http://localhost:8080"}, true},
		{"http://anything.dev", []string{"*"}, false},
		{"", []string{"*"}, true},
		{"file://x", []string{"*"}, true},
		{"null", []string{"*"}, true},
		{"http://localhost:8080", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			err := ValidateOrigin(tt.origin, tt.allowed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
