// Package validation checks operator-supplied service endpoints and content
// identifiers before they reach a request or a shell command.
package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("URL cannot be empty")
	ErrInvalidIdentifier = errors.New("invalid content identifier")
)

// EndpointValidator validates base URLs of the content service and editor.
type EndpointValidator struct {
	// AllowLocalhost permits loopback hosts.
	AllowLocalhost bool
	// AllowPrivateIPs permits RFC 1918 and link-local addresses.
	AllowPrivateIPs bool
	// RequireHTTPS rejects plain http endpoints.
	RequireHTTPS bool
	MaxLength    int
}

// NewEndpointValidator accepts internal deployments, where workspaces
// usually run.
func NewEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// NewStrictEndpointValidator only accepts public https endpoints.
func NewStrictEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		RequireHTTPS: true,
		MaxLength:    2048,
	}
}

// Normalize validates a base URL and returns it without a trailing slash.
// A missing scheme defaults to http for loopback hosts and https otherwise.
func (v *EndpointValidator) Normalize(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyURL
	}
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		scheme := "https://"
		if host, _, _ := strings.Cut(input, "/"); isLocalhost(hostOnly(host)) {
			scheme = "http://"
		}
		input = scheme + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if v.RequireHTTPS {
			return "", fmt.Errorf("endpoint must use https")
		}
	default:
		return "", fmt.Errorf("URL must use http or https protocol")
	}

	if u.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}
	if u.User != nil {
		return "", fmt.Errorf("credentials are not allowed in endpoint URLs")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("endpoint URL must not carry a query or fragment")
	}
	if strings.Contains(u.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in URL path")
	}

	if err := v.validateHost(hostOnly(u.Host)); err != nil {
		return "", err
	}

	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

func (v *EndpointValidator) validateHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if ip.IsUnspecified() || ip.Equal(net.IPv4bcast) {
			return fmt.Errorf("%s is not a usable host", hostname)
		}
		if !v.AllowPrivateIPs && (ip.IsPrivate() || ip.IsLinkLocalUnicast()) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
		if !v.AllowLocalhost && ip.IsLoopback() {
			return fmt.Errorf("localhost URLs are not permitted")
		}
	}

	return nil
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

// ValidateIdentifier checks that a content identifier is safe to place in a
// URL path or pass to an opener.
func ValidateIdentifier(id string) error {
	if id == "" || len(id) > 256 {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.', r == ':':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}
