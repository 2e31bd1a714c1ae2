// Package faq answers frequent questions from a fixed keyword table.
package faq

import (
	"strings"
	"unicode/utf8"
)

// Entry pairs a lowercase keyword with its answer.
type Entry struct {
	Keyword string
	Answer  string
}

// Matcher scans entries in registration order; the first keyword found wins.
type Matcher struct {
	entries   []Entry
	questions []string
}

// New builds a matcher over entries, keeping their order.
func New(entries ...Entry) *Matcher {
	m := &Matcher{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" || e.Answer == "" {
			continue
		}
		m.entries = append(m.entries, Entry{Keyword: kw, Answer: e.Answer})
	}
	return m
}

// WithQuestions sets the canned questions offered on the FAQ keyboard.
func (m *Matcher) WithQuestions(questions ...string) *Matcher {
	m.questions = append([]string(nil), questions...)
	return m
}

// Questions returns the canned questions in display order.
func (m *Matcher) Questions() []string {
	return append([]string(nil), m.questions...)
}

// Normalize lowercases text, drops question marks and trims spaces.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "?", "")
	return strings.TrimSpace(text)
}

// Match returns the answer of the first entry whose keyword occurs in text.
func (m *Matcher) Match(text string) (string, bool) {
	q := Normalize(text)
	if q == "" {
		return "", false
	}
	for _, e := range m.entries {
		if strings.Contains(q, e.Keyword) {
			return e.Answer, true
		}
	}
	return "", false
}

// IsQuestion reports whether text should be treated as a FAQ question: it is a
// keyword, a keyword missing its last letter, a canned question, or ends with "?".
func (m *Matcher) IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	for _, q := range m.questions {
		if trimmed == q {
			return true
		}
	}
	q := Normalize(trimmed)
	for _, e := range m.entries {
		if q == e.Keyword || q == dropLastRune(e.Keyword) {
			return true
		}
	}
	return false
}

func dropLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
