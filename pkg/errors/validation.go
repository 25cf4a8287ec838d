package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

// identifierRegex matches unquoted PostgreSQL identifiers.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// ValidateIdentifier validates a table, column or schema name before it is
// interpolated into SQL. Only plain unquoted identifiers are accepted:
//   - Must not be empty
//   - Maximum length of 63 bytes
//   - Starts with a letter or underscore
//   - Continues with letters, digits, underscores or dollar signs
func ValidateIdentifier(name string) error {
	if name == "" {
		return New(ErrCodeInvalidIdentifier, "identifier cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return New(ErrCodeInvalidIdentifier, "identifier too long (max %d characters)", maxIdentifierLength)
	}
	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidIdentifier, "invalid identifier: %q", name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "URL contains invalid control characters")
		}
	}

	return nil
}

// ValidateDSN performs a light sanity check on a database connection string.
// Both URL ("postgres://...") and keyword ("host=... dbname=...") forms pass.
func ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return New(ErrCodeInvalidConfig, "database connection string cannot be empty")
	}
	if strings.ContainsRune(dsn, '\x00') {
		return New(ErrCodeInvalidConfig, "database connection string contains a null byte")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "=") {
		return nil
	}
	return New(ErrCodeInvalidConfig, "unrecognized database connection string format")
}
