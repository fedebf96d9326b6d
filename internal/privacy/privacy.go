// Package privacy scrubs sensitive data from messages before they are logged
// to external systems or reported to telemetry. Notification traffic carries
// recipient emails and phone numbers, and transport errors embed provider
// URLs with credentials and tokens; ScrubMessage removes all of them while
// keeping enough structure to debug with.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Pre-compiled patterns, shared across calls.
var (
	// Any scheme, so provider service URLs (smtp://, telegram://, tcp://)
	// are caught along with plain http(s).
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// E.164-style numbers with optional separators. Only +-prefixed numbers
	// are scrubbed; bare digit runs stay, they are usually counts or ports.
	phonePattern = regexp.MustCompile(`\+\d(?:[ .()-]{0,2}\d){6,14}`)

	// Key/value secrets need an = or : so prose like "token count" survives.
	kvTokenPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password|authorization)\b\s*[=:]\s*(?:bearer\s+)?[^\s&"',;]+`)
	bearerPattern  = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`)

	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage removes or anonymizes sensitive information from a message.
// URLs are anonymized first so credentials embedded in them never reach the
// later passes, then emails, phone numbers, secrets, and UUIDs are redacted.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	scrubbed = ScrubEmails(scrubbed)
	scrubbed = ScrubPhoneNumbers(scrubbed)
	scrubbed = ScrubTokens(scrubbed)
	return ScrubUUIDs(scrubbed)
}

// ScrubEmails replaces email addresses with [EMAIL].
func ScrubEmails(message string) string {
	return emailPattern.ReplaceAllString(message, "[EMAIL]")
}

// ScrubPhoneNumbers replaces international phone numbers with [PHONE].
func ScrubPhoneNumbers(message string) string {
	return phonePattern.ReplaceAllString(message, "[PHONE]")
}

// ScrubTokens redacts values following key/token/secret style markers and
// bare bearer credentials.
func ScrubTokens(message string) string {
	scrubbed := kvTokenPattern.ReplaceAllString(message, "$1=[REDACTED]")
	return bearerPattern.ReplaceAllString(scrubbed, "[REDACTED]")
}

// ScrubUUIDs replaces UUIDs with [UUID]. Notification and request IDs are
// random UUIDs; they are not personal data but are high-cardinality noise in
// aggregated telemetry.
func ScrubUUIDs(message string) string {
	return uuidPattern.ReplaceAllString(message, "[UUID]")
}

// AnonymizeURL converts a URL to an anonymized form while preserving
// debugging value. The scheme, host category, port, and path structure
// survive as a stable hash, so the same endpoint always anonymizes to the
// same token, but credentials, hostnames, and path details do not.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		// If parsing fails, hash the raw string.
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var normalizedParts []string

	if parsedURL.Scheme != "" {
		normalizedParts = append(normalizedParts, parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	if host != "" {
		normalizedParts = append(normalizedParts, categorizeHost(host))
	}

	if parsedURL.Port() != "" {
		normalizedParts = append(normalizedParts, "port-"+parsedURL.Port())
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		normalizedParts = append(normalizedParts, anonymizePath(parsedURL.Path))
	}

	normalized := strings.Join(normalizedParts, ":")
	hash := sha256.Sum256([]byte(normalized))

	return fmt.Sprintf("url-%x", hash[:12])
}

// categorizeHost anonymizes hostnames while preserving useful categorization.
func categorizeHost(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}

	if isPrivateIP(host) {
		return "private-ip"
	}

	if isIPAddress(host) {
		return "public-ip"
	}

	// For domain names, preserve TLD only
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		tld := parts[len(parts)-1]
		return "domain-" + tld
	}

	return "unknown-host"
}

// anonymizePath creates a structure-preserving but privacy-safe path
// representation. Common API segments survive verbatim; everything else is
// hashed per segment.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	segments := strings.Split(path, "/")
	anonymizedSegments := make([]string, 0, len(segments))

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		switch {
		case isCommonAPISegment(segment):
			anonymizedSegments = append(anonymizedSegments, strings.ToLower(segment))
		case isNumeric(segment):
			anonymizedSegments = append(anonymizedSegments, "numeric")
		default:
			hash := sha256.Sum256([]byte(segment))
			anonymizedSegments = append(anonymizedSegments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}

	return strings.Join(anonymizedSegments, "/")
}

// isPrivateIP checks if the host is a private IP address (both IPv4 and IPv6).
func isPrivateIP(host string) bool {
	privateRanges := []string{
		// IPv4 private ranges
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		// IPv6 private ranges
		"fc00:", "fd00:", // Unique local addresses
		"fe80:",                   // Link-local addresses
		"::1",                     // Loopback
		"ff00:", "ff01:", "ff02:", // Multicast
	}

	for _, prefix := range privateRanges {
		if strings.HasPrefix(strings.ToLower(host), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// isIPAddress checks if the host looks like an IP address.
func isIPAddress(host string) bool {
	if ipv4Pattern.MatchString(host) {
		return true
	}

	// IPv6 contains colons
	return strings.Contains(host, ":")
}

// isCommonAPISegment checks if a path segment is a common, non-sensitive API
// path element found in provider endpoints.
func isCommonAPISegment(segment string) bool {
	commonNames := []string{"api", "v1", "v2", "v3", "webhook", "webhooks", "hooks", "send", "messages", "notify", "email"}
	segment = strings.ToLower(segment)

	for _, name := range commonNames {
		if segment == name {
			return true
		}
	}
	return false
}

// isNumeric checks if a string is purely numeric.
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
