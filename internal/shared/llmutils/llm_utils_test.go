package llmutils

import (
	"strings"
	"testing"

	"github.com/recipebox/recipebox/internal/schema"
)

func TestStripThink(t *testing.T) {
	got := StripThink("<think>plan\nsteps</think>Here you go")
	if got != "Here you go" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("crème", 3); got != "cr..." {
		t.Errorf("cut inside a rune: got %q", got)
	}
}

func TestToolHint(t *testing.T) {
	got := ToolHint([]schema.ToolCall{
		{Name: "list_recipes"},
		{Name: "get_recipe", Arguments: schema.Object{"recipe_id": "abc"}},
	})
	want := `list_recipes, get_recipe("abc")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToolHint_PicksFirstStringByKey(t *testing.T) {
	got := ToolHint([]schema.ToolCall{{
		Name:      "search_recipes",
		Arguments: schema.Object{"zlimit": 5.0, "query": "soup", "cuisine": ""},
	}})
	if got != `search_recipes("soup")` {
		t.Errorf("got %q", got)
	}

	long := ToolHint([]schema.ToolCall{{Name: "note", Arguments: schema.Object{"text": strings.Repeat("é", 50)}}})
	if want := `note("` + strings.Repeat("é", 40) + `…")`; long != want {
		t.Errorf("got %q, want %q", long, want)
	}
}
