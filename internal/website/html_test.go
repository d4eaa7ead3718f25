package website

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\n\ntwo"},
		{"line break", "a<br>b", "a\nb"},
		{"entities", "<p>fish &amp; chips</p>", "fish & chips"},
		{"link keeps href", `<a href="https://x.test/a">profile</a>`, "profile (https://x.test/a)"},
		{"bare link", `<a href="https://x.test">https://x.test</a>`, "https://x.test"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "- a\n- b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, "#cat #bigdog #tagged", Hashtags([]string{"cat", "big dog", "", "#tagged"}))
	assert.Equal(t, "", Hashtags(nil))
}

func TestLink(t *testing.T) {
	assert.Equal(t, `<a href="https://x.test/?a=1&amp;b=2">bob</a>`, Link("https://x.test/?a=1&b=2", "bob"))
}
