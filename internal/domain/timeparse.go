package domain

import (
	"strings"
	"time"
)

// Vendor timestamps arrive in several shapes; naive forms are treated as UTC.
var vendorTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseVendorTime parses a vendor-supplied timestamp string. The second
// return value reports whether the value was parseable at all, so callers can
// distinguish "absent/garbage" from a real instant.
func ParseVendorTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range vendorTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
