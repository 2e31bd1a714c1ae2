package faq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "когда каникулы", Normalize("  Когда КАНИКУЛЫ? "))
	assert.Equal(t, "", Normalize("???"))
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	m := New(
		Entry{Keyword: "собрание", Answer: "first"},
		Entry{Keyword: "каникулы", Answer: "second"},
	)
	got, ok := m.Match("Каникулы и собрание?")
	assert.True(t, ok)
	assert.Equal(t, "first", got)

	reversed := New(
		Entry{Keyword: "каникулы", Answer: "second"},
		Entry{Keyword: "собрание", Answer: "first"},
	)
	got, ok = reversed.Match("Каникулы и собрание?")
	assert.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestMatchNone(t *testing.T) {
	_, ok := School().Match("Сколько стоит обед?")
	assert.False(t, ok)
	_, ok = School().Match("?")
	assert.False(t, ok)
}

func TestSchoolAnswers(t *testing.T) {
	m := School()
	cases := map[string]string{
		"Когда каникулы?":             VacationAnswer,
		"когда собрание":              "Следующее родительское собрание 5 апреля в 18:00",
		"Где найти домашнее задание?": "Домашние задания публикуются в электронном дневнике",
		"Какие есть кружки?":          "Список кружков и секций доступен на сайте школы",
	}
	for in, want := range cases {
		got, ok := m.Match(in)
		assert.Truef(t, ok, "input %q", in)
		assert.Equalf(t, want, got, "input %q", in)
	}
}

func TestIsQuestion(t *testing.T) {
	m := School()
	assert.True(t, m.IsQuestion("каникулы"))
	assert.True(t, m.IsQuestion("Каникул"))
	assert.True(t, m.IsQuestion("кружк"))
	assert.True(t, m.IsQuestion("Как связаться с учителем?"))
	assert.True(t, m.IsQuestion("что на обед?"))
	assert.False(t, m.IsQuestion("расскажи про школу"))
	assert.False(t, m.IsQuestion("  "))
}

func TestNewSkipsEmptyEntries(t *testing.T) {
	m := New(Entry{Keyword: " ", Answer: "x"}, Entry{Keyword: "a", Answer: ""}, Entry{Keyword: "B", Answer: "b"})
	got, ok := m.Match("b")
	assert.True(t, ok)
	assert.Equal(t, "b", got)
	assert.Len(t, m.entries, 1)
}

func TestQuestionsIsCopy(t *testing.T) {
	m := School()
	qs := m.Questions()
	qs[0] = "changed"
	assert.Equal(t, "Когда каникулы?", m.Questions()[0])
}
