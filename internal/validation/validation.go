// Package validation holds the path, host and origin checks shared by the
// configuration, the manifest and the development server.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidateRelativePath rejects empty and absolute paths and paths that
// climb out of the directory they are resolved against.
func ValidateRelativePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a null byte: %q", path)
	}

	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must be relative: %s", path)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}
	return nil
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateHostname accepts IP addresses, localhost and RFC 1123 host names.
func ValidateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}
	return nil
}

// ValidateURL accepts absolute http(s) URLs with a host and without shell
// metacharacters or whitespace.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", "\t", " "}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %q", char)
		}
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}
	return nil
}

// ValidateOrigin checks a request Origin header against allowed origins.
// Scheme and host must match exactly. An allowed entry of "*" admits any
// http(s) origin.
func ValidateOrigin(origin string, allowed []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme %q: only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("origin %q has no host", origin)
	}

	for _, a := range allowed {
		if a == "*" {
			return nil
		}
		au, err := url.Parse(a)
		if err == nil && au.Scheme == u.Scheme && au.Host == u.Host {
			return nil
		}
	}
	return fmt.Errorf("origin %q is not in allowed origins list", origin)
}
