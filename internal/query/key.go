package query

import (
	"fmt"
	"net/url"
	"strings"

	"tablero/internal/model"
)

const keySeparator = ","

// DecodeCompositeKey splits a comma-joined, still path-escaped URL key into one
// value per declared key column of table.
func DecodeCompositeKey(table model.TableSpec, raw string) (model.CompositeKey, error) {
	parts := strings.Split(raw, keySeparator)
	key := make(model.CompositeKey, len(parts))
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedKey, err)
		}
		key[i] = v
	}
	if err := checkKey(table, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeCompositeKey path-escapes each value and joins them for use in a URL
// path segment. Commas and slashes inside values are escaped.
func EncodeCompositeKey(values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = url.PathEscape(v)
	}
	return strings.Join(escaped, keySeparator)
}

// KeyColumns maps each declared key column of table to its value in key.
func KeyColumns(table model.TableSpec, key model.CompositeKey) (map[string]string, error) {
	if err := checkKey(table, key); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(key))
	for i, col := range table.PrimaryKey {
		out[col] = key[i]
	}
	return out, nil
}
