package helper

import (
	"fmt"
	"regexp"
	"time"
)

var IdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

func IsValidIdentifier(s string) bool {
	return len(s) <= maxIdentifierLength && IdentifierRegex.MatchString(s)
}

// ValidateIdentifiers returns an error naming the first entry that is not a
// plain SQL identifier.
func ValidateIdentifiers(kind string, names ...string) error {
	for _, name := range names {
		if !IsValidIdentifier(name) {
			return fmt.Errorf("invalid %s name %q", kind, name)
		}
	}
	return nil
}

// FirstValue returns the first value of a multi-valued form field.
func FirstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// FormatValue renders a scanned column value as text PostgreSQL can parse
// back. NULL becomes the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(time.DateTime)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
