// Package schedule parses "<grade><letter> <day>" lookups such as "7А Понедельник".
package schedule

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidQuery is returned for text that does not have the query shape.
var ErrInvalidQuery = errors.New("schedule: invalid query")

// Grade letters are stored in Cyrillic; the Latin look-alike is accepted on input.
const (
	cyrillicA = "А"
	latinA    = "A"
)

var queryRe = regexp.MustCompile(`^(\d+[АA])\s+([\p{L}\p{N}_]+)$`)

// Query identifies one class and day.
type Query struct {
	Class string
	Day   string
}

// Parse validates text and returns the normalized query.
func Parse(text string) (Query, error) {
	m := queryRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Query{}, ErrInvalidQuery
	}
	return Query{
		Class: NormalizeClass(m[1]),
		Day:   m[2],
	}, nil
}

// Matches reports whether text has the query shape.
func Matches(text string) bool {
	return queryRe.MatchString(strings.TrimSpace(text))
}

// NormalizeClass swaps the Latin grade letter for its Cyrillic twin.
func NormalizeClass(class string) string {
	return strings.ReplaceAll(strings.TrimSpace(class), latinA, cyrillicA)
}
