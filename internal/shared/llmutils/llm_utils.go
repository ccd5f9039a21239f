// Package llmutils holds small text helpers shared by the providers, the tool
// bridge and the agent loop.
package llmutils

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/recipebox/recipebox/internal/schema"
)

const hintValueLimit = 40

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate cuts s to at most n bytes on a rune boundary and marks the cut
// with "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// StripThink drops reasoning blocks some models put before the answer.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// ToolHint renders a progress line for a batch of tool calls, one entry per
// call: the name alone, or the name with its first string argument by key
// order, e.g. `get_recipe("abc")`.
func ToolHint(calls []schema.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, tc := range calls {
		arg := firstStringArg(tc.Arguments)
		if arg == "" {
			parts = append(parts, tc.Name)
			continue
		}
		if utf8.RuneCountInString(arg) > hintValueLimit {
			arg = string([]rune(arg)[:hintValueLimit]) + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%q)", tc.Name, arg))
	}
	return strings.Join(parts, ", ")
}

func firstStringArg(args schema.Object) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := args[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
