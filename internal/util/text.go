package util

import "strings"

// SanitizePostgresText makes article text safe for a Postgres TEXT
// column: invalid UTF-8 sequences are dropped and NUL bytes removed.
// Scraped WeChat articles occasionally carry both.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
