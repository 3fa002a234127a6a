package sqlgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QuoteString renders s as a SQL string literal, doubling embedded
// single quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SQLLiteral encodes a Go value as a SQL literal: booleans as
// true/false, strings quoted, integers and floats bare, nil as null.
// Unsupported types fail so they never reach the database as text.
func SQLLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case string:
		return QuoteString(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T (%v)", v, v)
	}
}

// JSONLiteral encodes a Go value as a token inside a jsonpath
// expression: strings are double-quoted and JSON-escaped, everything
// else matches SQLLiteral. The enclosing path string is SQL-quoted as a
// whole by the caller.
func JSONLiteral(v any) (string, error) {
	if s, ok := v.(string); ok {
		b, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return SQLLiteral(v)
}

// JSONKey encodes a metadata key for use in a jsonpath member accessor:
// $."<key>". JSON escaping here is what prevents key injection into the
// path string.
func JSONKey(name string) string {
	b, _ := json.Marshal(name)
	return string(b)
}
