package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"accents and underscore", "  Héllo_World!!  ", "hello-world"},
		{"only hyphens", "---", ""},
		{"only punctuation", "!?.,;", ""},
		{"interior whitespace", "My   first\tAI", "my-first-ai"},
		{"leading hyphen kept", "-leading", "-leading"},
		{"trailing hyphen dropped", "trailing-", "trailing"},
		{"mixed separators collapse", "a _ - _ b", "a-b"},
		{"digits kept", "GPT 4 Turbo", "gpt-4-turbo"},
		{"compatibility forms", "ﬁle №1", "file-no1"},
		{"non-latin dropped, leading hyphen kept", "日本 AI", "-ai"},
		{"no-break space", "a\u00a0b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	for _, in := range []string{"Knowledge Base: Q3 Reports", "ÀÉÎÕÜ", "x__y"} {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "input %q", in)
	}
}
