// Package validation checks user-supplied paths, hosts, origins and file
// extensions before they reach the file system or the network.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	restrictedPaths = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/"}
	pathMetaChars   = []string{";", "&", "|", "$", "`", "<", ">"}
	hostMetaChars   = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	extensionChars  = regexp.MustCompile(`^\.[a-zA-Z0-9_-]+$`)
)

// ValidatePath rejects empty paths, traversal out of the working tree,
// system directories and shell metacharacters.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.ToSlash(filepath.Clean(path))
	if cleanPath == ".." || strings.HasPrefix(cleanPath, "../") || strings.Contains(cleanPath, "/../") {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	lower := strings.ToLower(cleanPath)
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(lower+"/", restricted) {
			return fmt.Errorf("access to restricted path denied: %s", path)
		}
	}

	for _, char := range pathMetaChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateHost accepts IP addresses, "localhost" and RFC 1123 host names.
// The empty string means all interfaces and is accepted.
func ValidateHost(host string) error {
	if host == "" {
		return nil
	}

	for _, char := range hostMetaChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}

	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	return nil
}

// ValidateExtension checks that ext looks like ".wxml": a dot followed by
// letters, digits, '-' or '_'.
func ValidateExtension(ext string) error {
	if !extensionChars.MatchString(ext) {
		return fmt.Errorf("invalid file extension %q: must start with '.' followed by letters or digits", ext)
	}
	return nil
}

// ValidateOrigin checks a websocket Origin header against allowedOrigins.
// An entry matches either the full origin or its host.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
