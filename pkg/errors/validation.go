package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidatePath validates a local file path supplied on the command line or
// in a config file. Absolute paths are allowed; control characters are not.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a crawl seed. It must parse, use http or https and
// name a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme: %q", rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}

	return nil
}

// ValidateMin checks that an integer limit is at least min.
func ValidateMin(name string, value, min int) error {
	if value < min {
		return New(ErrCodeInvalidArguments, "%s must be >= %d, got %d", name, min, value)
	}
	return nil
}

// ValidateOpenUnit checks that value lies in the open interval (0, 1).
func ValidateOpenUnit(name string, value float64) error {
	if !(value > 0 && value < 1) {
		return New(ErrCodeInvalidArguments, "%s must be in (0, 1), got %g", name, value)
	}
	return nil
}

// ValidatePositive checks that value is strictly positive.
func ValidatePositive(name string, value float64) error {
	if !(value > 0) {
		return New(ErrCodeInvalidArguments, "%s must be > 0, got %g", name, value)
	}
	return nil
}
