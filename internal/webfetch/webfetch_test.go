package webfetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Tomato Soup</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Tomato Soup</h1>
<p>` + longParagraph + `</p>
<p>Simmer the tomatoes with onion and garlic for twenty minutes, then blend until smooth and season to taste.</p>
</article>
</body></html>`

const longParagraph = "This is a simple weeknight soup that relies on good canned tomatoes. " +
	"It comes together quickly and keeps well in the fridge for several days. " +
	"Serve it with grilled cheese sandwiches or crusty bread for a complete meal. " +
	"The recipe doubles easily and freezes well, so make a big batch when tomatoes are cheap. " +
	"A splash of cream at the end makes it richer, but it is just as good without."

const jsonLDHTML = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"Cooking"}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":["Recipe","NewsArticle"],
   "name":"Lemon &amp; Herb Chicken",
   "description":"Bright and <b>easy</b>.",
   "recipeYield":["4","4 servings"],
   "prepTime":"PT15M","cookTime":"PT1H5M","totalTime":"PT1H20M",
   "recipeIngredient":["1 whole chicken","2  lemons"],
   "recipeInstructions":[
     {"@type":"HowToSection","name":"Prep","itemListElement":[{"@type":"HowToStep","text":"Heat oven to 220C."}]},
     {"@type":"HowToStep","text":"Roast until golden."},
     "Rest for 10 minutes."
   ]}
]}
</script>
</head><body><p>Story about chicken.</p></body></html>`

const microdataHTML = `<!DOCTYPE html>
<html><body>
<div itemscope itemtype="https://schema.org/Recipe">
  <h1 itemprop="name">Pancakes</h1>
  <meta itemprop="totalTime" content="PT20M">
  <span itemprop="recipeYield">8 pancakes</span>
  <ul>
    <li itemprop="recipeIngredient">200 g flour</li>
    <li itemprop="recipeIngredient">2 eggs</li>
  </ul>
  <p itemprop="recipeInstructions">Whisk everything.</p>
  <p itemprop="recipeInstructions">Fry in butter.</p>
</div>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, ctype, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", ctype)
			_, _ = w.Write([]byte(body))
		})
	}
	serve("/article", "text/html; charset=utf-8", articleHTML)
	serve("/jsonld", "text/html", jsonLDHTML)
	serve("/microdata", "text/html", microdataHTML)
	serve("/data", "application/json", `{"a":1}`)
	serve("/text", "text/plain", strings.Repeat("abcdefghij", 30))
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/data", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPage_HTMLUsesReadability(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	page, err := f.FetchPage(context.Background(), srv.URL+"/article", 0)
	require.NoError(t, err)

	assert.Equal(t, "readability", page.Extractor)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Text, "Simmer the tomatoes")
	assert.NotContains(t, page.Text, "<p>")
	assert.False(t, page.Truncated)
	assert.Equal(t, len(page.Text), page.Length)
}

func TestFetchPage_JSONIsIndented(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	page, err := f.FetchPage(context.Background(), srv.URL+"/redirect", 0)
	require.NoError(t, err)

	assert.Equal(t, "json", page.Extractor)
	assert.Equal(t, "{\n  \"a\": 1\n}", page.Text)
	assert.Equal(t, srv.URL+"/data", page.FinalURL)
}

func TestFetchPage_Truncates(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{MaxChars: 1000})

	page, err := f.FetchPage(context.Background(), srv.URL+"/text", 120)
	require.NoError(t, err)
	assert.Equal(t, "raw", page.Extractor)
	assert.True(t, page.Truncated)
	assert.Len(t, page.Text, 120)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(page.JSON()), &decoded))
	assert.Equal(t, true, decoded["truncated"])
}

func TestFetchPage_Errors(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	_, err := f.FetchPage(context.Background(), srv.URL+"/missing", 0)
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.FetchPage(context.Background(), "file:///etc/passwd", 0)
	assert.ErrorContains(t, err, "only http/https")

	_, err = f.FetchPage(context.Background(), "https://", 0)
	assert.ErrorContains(t, err, "missing domain")
}

func TestExtractRecipe_JSONLD(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	out, err := f.ExtractRecipe(context.Background(), srv.URL+"/jsonld")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Lemon & Herb Chicken\n"), out)
	assert.Contains(t, out, "Source: "+srv.URL+"/jsonld")
	assert.Contains(t, out, "Bright and easy.")
	assert.Contains(t, out, "Serves: 4 | Prep: 15 min | Cook: 1 h 5 min | Total: 1 h 20 min")
	assert.Contains(t, out, "- 1 whole chicken\n- 2 lemons\n")
	assert.Contains(t, out, "1. Heat oven to 220C.\n2. Roast until golden.\n3. Rest for 10 minutes.")
}

func TestExtractRecipe_Microdata(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	out, err := f.ExtractRecipe(context.Background(), srv.URL+"/microdata")
	require.NoError(t, err)

	assert.Contains(t, out, "# Pancakes")
	assert.Contains(t, out, "Serves: 8 pancakes | Total: 20 min")
	assert.Contains(t, out, "- 200 g flour\n- 2 eggs")
	assert.Contains(t, out, "1. Whisk everything.\n2. Fry in butter.")
}

func TestExtractRecipe_FallsBackToPageText(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	out, err := f.ExtractRecipe(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "No structured recipe data found"))
	assert.Contains(t, out, "Simmer the tomatoes")
}

func TestExtractRecipe_RejectsNonHTML(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Options{})

	_, err := f.ExtractRecipe(context.Background(), srv.URL+"/data")
	assert.ErrorContains(t, err, "not an HTML page")
}

func TestFormatDuration(t *testing.T) {
	cases := map[string]string{
		"PT15M":    "15 min",
		"PT1H":     "1 h",
		"PT1H30M":  "1 h 30 min",
		"P1DT2H":   "1 d 2 h",
		"PT0M":     "",
		"20 mins":  "20 mins",
		"":         "",
		"pt45m":    "45 min",
		"PT90S":    "90 s",
		"PT01H05M": "1 h 5 min",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatDuration(in), "formatDuration(%q)", in)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	in := `<h2>Steps</h2><ul><li>Chop</li><li>Stir &amp; serve</li></ul><p>See <a href="https://x.test">notes</a></p>`
	out := htmlToMarkdown(in)
	assert.Contains(t, out, "## Steps")
	assert.Contains(t, out, "- Chop")
	assert.Contains(t, out, "- Stir & serve")
	assert.Contains(t, out, "[notes](https://x.test)")
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	out, cut := truncate("crème brûlée", 3)
	assert.True(t, cut)
	assert.Equal(t, "cr", out)
}
