package webfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Recipe is a schema.org Recipe reduced to what a cook needs.
type Recipe struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Yield        string   `json:"yield,omitempty"`
	PrepTime     string   `json:"prepTime,omitempty"`
	CookTime     string   `json:"cookTime,omitempty"`
	TotalTime    string   `json:"totalTime,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Source       string   `json:"source"`
}

// Markdown renders the recipe for the model.
func (r *Recipe) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\nSource: %s\n", r.Name, r.Source)
	if r.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Description)
	}

	var facts []string
	if r.Yield != "" {
		facts = append(facts, "Serves: "+r.Yield)
	}
	for _, t := range []struct{ label, v string }{{"Prep", r.PrepTime}, {"Cook", r.CookTime}, {"Total", r.TotalTime}} {
		if t.v != "" {
			facts = append(facts, t.label+": "+t.v)
		}
	}
	if len(facts) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", strings.Join(facts, " | "))
	}

	sb.WriteString("\n## Ingredients\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&sb, "- %s\n", ing)
	}
	sb.WriteString("\n## Instructions\n")
	for i, step := range r.Instructions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ExtractRecipe downloads rawURL and returns the recipe it carries, as
// markdown. Pages without schema.org Recipe data fall back to their readable
// text so the model can still read the recipe.
func (f *Fetcher) ExtractRecipe(ctx context.Context, rawURL string) (string, error) {
	doc, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !doc.isHTML() {
		return "", fmt.Errorf("%s is not an HTML page (%s)", rawURL, doc.contentType)
	}

	if r := findRecipe(doc.body); r != nil {
		r.Source = doc.finalURL.String()
		return r.Markdown(), nil
	}

	_, text := readable(doc)
	text, _ = truncate(text, f.maxChars)
	return "No structured recipe data found on this page. Page text follows.\n\n" + text, nil
}

// findRecipe looks for JSON-LD first, then schema.org microdata.
func findRecipe(body []byte) *Recipe {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var found *Recipe
	dom.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		if node := findRecipeNode(v); node != nil {
			found = recipeFromJSONLD(node)
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	return recipeFromMicrodata(dom)
}

// findRecipeNode walks arrays and @graph containers for a node typed Recipe.
func findRecipeNode(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findRecipeNode(item); n != nil {
				return n
			}
		}
	case map[string]any:
		if hasType(t["@type"], "Recipe") {
			return t
		}
		if g, ok := t["@graph"]; ok {
			return findRecipeNode(g)
		}
	}
	return nil
}

func hasType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, s := range t {
			if s == want {
				return true
			}
		}
	}
	return false
}

func recipeFromJSONLD(n map[string]any) *Recipe {
	r := &Recipe{
		Name:        cleanText(stringValue(n["name"])),
		Description: cleanText(stringValue(n["description"])),
		Yield:       firstString(n["recipeYield"]),
		PrepTime:    formatDuration(stringValue(n["prepTime"])),
		CookTime:    formatDuration(stringValue(n["cookTime"])),
		TotalTime:   formatDuration(stringValue(n["totalTime"])),
	}
	for _, s := range stringList(n["recipeIngredient"]) {
		r.Ingredients = append(r.Ingredients, cleanText(s))
	}
	r.Instructions = instructions(n["recipeInstructions"])
	return r
}

// instructions flattens text, HowToStep and HowToSection values.
func instructions(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(stripHTMLTags(t), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	case []any:
		for _, item := range t {
			out = append(out, instructions(item)...)
		}
	case map[string]any:
		if items, ok := t["itemListElement"]; ok {
			return instructions(items)
		}
		if text := cleanText(stringValue(t["text"])); text != "" {
			out = append(out, text)
		} else if name := cleanText(stringValue(t["name"])); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func recipeFromMicrodata(dom *goquery.Document) *Recipe {
	scope := dom.Find(`[itemtype$="schema.org/Recipe"]`).First()
	if scope.Length() == 0 {
		return nil
	}
	prop := func(name string) *goquery.Selection { return scope.Find(`[itemprop="` + name + `"]`) }
	value := func(s *goquery.Selection) string {
		if c, ok := s.Attr("content"); ok {
			return cleanText(c)
		}
		return cleanText(s.Text())
	}

	r := &Recipe{
		Name:        value(prop("name").First()),
		Description: value(prop("description").First()),
		Yield:       value(prop("recipeYield").First()),
		PrepTime:    formatDuration(value(prop("prepTime").First())),
		CookTime:    formatDuration(value(prop("cookTime").First())),
		TotalTime:   formatDuration(value(prop("totalTime").First())),
	}
	prop("recipeIngredient").Each(func(_ int, s *goquery.Selection) {
		if v := value(s); v != "" {
			r.Ingredients = append(r.Ingredients, v)
		}
	})
	prop("recipeInstructions").Each(func(_ int, s *goquery.Selection) {
		if v := value(s); v != "" {
			r.Instructions = append(r.Instructions, v)
		}
	})
	if r.Name == "" && len(r.Ingredients) == 0 {
		return nil
	}
	return r
}

// ---------------------------------------------------------------------------
// JSON-LD value helpers
// ---------------------------------------------------------------------------

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return ""
}

func firstString(v any) string {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s := cleanText(stringValue(item)); s != "" {
				return s
			}
		}
		return ""
	}
	return cleanText(stringValue(v))
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(stripHTMLTags(s)), " ")
}

var reISODuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// formatDuration turns ISO 8601 durations like PT1H30M into "1 h 30 min".
// Anything else is returned unchanged.
func formatDuration(s string) string {
	m := reISODuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return s
	}
	var parts []string
	for i, unit := range []string{"d", "h", "min", "s"} {
		if v := strings.TrimLeft(m[i+1], "0"); v != "" {
			parts = append(parts, v+" "+unit)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}
