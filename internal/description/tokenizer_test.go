package description

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	text := "a {title} b {[only=foo,bar;x=1]ig:bob} {greet:World} {not a key} { } {"
	got, err := Tokenize(text)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "title", got[0].Key)
	assert.False(t, got[0].HasArg)
	assert.Equal(t, "{title}", text[got[0].Start:got[0].End])

	assert.Equal(t, "ig", got[1].Key)
	assert.Equal(t, "bob", got[1].Arg)
	only, ok := got[1].Modifier("only")
	assert.True(t, ok)
	assert.Equal(t, "foo,bar", only)
	assert.Equal(t, "{[only=foo,bar;x=1]ig:bob}", got[1].Original)
	assert.Equal(t, got[1].Original, got[1].String())

	assert.Equal(t, "greet", got[2].Key)
	assert.Equal(t, "World", got[2].Arg)
}

func TestTokenize_Malformed(t *testing.T) {
	for _, in := range []string{
		"{[only=foo bar}",
		"{[only=foo",
		"{[only]bar}",
		"{[only=foo]}",
		"{[only=foo] bar}",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Tokenize(in)
			assert.ErrorIs(t, err, ErrMalformedShortcut)
		})
	}
}

func TestTokenize_LiteralBraces(t *testing.T) {
	got, err := Tokenize(`json {"a": 1} and {x:{y}}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Key)
}

func TestRewrite(t *testing.T) {
	out := Rewrite("hello {a} and {b}", []Replacement{
		{Start: 6, End: 9, Text: "A"},
		{Start: 14, End: 17, Text: ""},
	})
	assert.Equal(t, "hello A and ", out)
	assert.Equal(t, "same", Rewrite("same", nil))
}

func TestFilterOnly(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		website string
		want    string
	}{
		{"kept for listed website", "a {[only=foo]bar} b", "foo", "a {bar} b"},
		{"removed for other website", "a {[only=foo]bar} b", "baz", "a b"},
		{"case insensitive list", "a {[only=Foo, BAR]bar} b", "bar", "a {bar} b"},
		{"keeps argument", "{[only=foo]ig:bob}", "foo", "{ig:bob}"},
		{"keeps other modifiers", "{[only=foo;x=1]k}", "foo", "{[x=1]k}"},
		{"leading shortcut takes following space", "{[only=foo]bar} start", "baz", "start"},
		{"trailing shortcut takes preceding space", "end {[only=foo]bar}", "baz", "end"},
		{"adjacent removals", "a {[only=x]b} {[only=x]c} d", "y", "a d"},
		{"untouched without modifier", "a {bar} b", "baz", "a {bar} b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterOnly(tt.in, tt.website)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
