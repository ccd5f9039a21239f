package channels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowList_IsAllowed(t *testing.T) {
	assert.True(t, allowList(nil).IsAllowed("anyone"))

	list := allowList{"42", "chef"}
	assert.True(t, list.IsAllowed("42"))
	assert.True(t, list.IsAllowed("42|someone"))
	assert.True(t, list.IsAllowed("7|chef"))
	assert.False(t, list.IsAllowed("7|guest"))
	assert.False(t, list.IsAllowed(""))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one", "line two", "line three"}, chunks)

	chunks = splitMessage(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
}

func TestMarkdownToTelegramHTML(t *testing.T) {
	cases := map[string]string{
		"## Ingredients":              "<b>Ingredients</b>",
		"- 2 eggs\n- flour":           "• 2 eggs\n• flour",
		"salt & pepper <to taste>":    "salt &amp; pepper &lt;to taste&gt;",
		"use `a<b>` here":             "use <code>a&lt;b&gt;</code> here",
		"[site](https://x.test)":      `<a href="https://x.test">site</a>`,
		"a _little_ sugar ~~salt~~":   "a <i>little</i> sugar <s>salt</s>",
		"```\nfor i := 0\n```":        "<pre><code>for i := 0\n</code></pre>",
		"> quoted":                    "quoted",
		"snake_case_name stays plain": "snake_case_name stays plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, markdownToTelegramHTML(in), "input %q", in)
	}
}
