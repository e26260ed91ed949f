// Package device turns raw User-Agent strings into human-readable device
// names for audit events and login records.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent produces a short display name like "Chrome on Mac OS X".
// Unknown or empty agents degrade to a generic label rather than an error.
func ParseUserAgent(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	return fmt.Sprintf("%s on %s", browser, os)
}
