package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCyrillicAndLatinLetterAgree(t *testing.T) {
	cyr, err := Parse("7А Понедельник")
	require.NoError(t, err)
	lat, err := Parse("7A Понедельник")
	require.NoError(t, err)

	assert.Equal(t, cyr, lat)
	assert.Equal(t, Query{Class: "7А", Day: "Понедельник"}, cyr)
}

func TestParseAccepts(t *testing.T) {
	cases := map[string]Query{
		"11А   Вторник":  {Class: "11А", Day: "Вторник"},
		" 5A среда ":     {Class: "5А", Day: "среда"},
		"9А Monday":      {Class: "9А", Day: "Monday"},
		"1А день_второй": {Class: "1А", Day: "день_второй"},
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoErrorf(t, err, "input %q", in)
		assert.Equalf(t, want, got, "input %q", in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		"7 Понедельник",
		"Понедельник",
		"7Б Понедельник",
		"7А",
		"7А Понедельник Вторник",
		"А7 Понедельник",
		"",
	} {
		_, err := Parse(in)
		assert.ErrorIsf(t, err, ErrInvalidQuery, "input %q", in)
		assert.Falsef(t, Matches(in), "input %q", in)
	}
}

func TestNormalizeClass(t *testing.T) {
	assert.Equal(t, "10А", NormalizeClass(" 10A "))
	assert.Equal(t, "10А", NormalizeClass("10А"))
}
