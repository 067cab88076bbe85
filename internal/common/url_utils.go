package common

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateSourceURL checks that a user-supplied document URL is fetchable.
// Only absolute http/https URLs are accepted. Loopback and private hosts
// are rejected unless allowTest is true (development mode).
func ValidateSourceURL(rawURL string, allowTest bool) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("url is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q (http or https required)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("url has no host")
	}

	if !allowTest && IsTestHost(host) {
		return nil, fmt.Errorf("host %q is not allowed in production", host)
	}

	return parsed, nil
}

// IsTestHost reports whether host is a loopback, link-local, or private
// address that should only be reachable in development.
func IsTestHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") || lower == "host.docker.internal" {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

// JoinPath safely joins path segments, preventing duplicate slashes
func JoinPath(segments ...string) string {
	result := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if result == "" {
			result = seg
		} else if result[len(result)-1] == '/' {
			if seg[0] == '/' {
				result += seg[1:]
			} else {
				result += seg
			}
		} else {
			if seg[0] == '/' {
				result += seg
			} else {
				result += "/" + seg
			}
		}
	}
	return result
}
