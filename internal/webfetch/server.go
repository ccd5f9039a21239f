package webfetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/recipebox/recipebox/internal/mcp"
	"github.com/recipebox/recipebox/internal/schema"
)

const serverName = "recipebox-webfetch"

// FetchPageArgs are the arguments of the fetch_page tool.
type FetchPageArgs struct {
	URL      string `json:"url" jsonschema:"description=Absolute http(s) URL to fetch"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"description=Maximum characters of text to return,minimum=100"`
}

// ExtractRecipeArgs are the arguments of the extract_recipe tool.
type ExtractRecipeArgs struct {
	URL string `json:"url" jsonschema:"description=Absolute http(s) URL of a recipe page"`
}

// NewServer exposes f as an MCP tool server with fetch_page and
// extract_recipe.
func NewServer(f *Fetcher, version string) *mcp.Server {
	s := mcp.NewServer(serverName, version)
	s.AddTool(schema.ToolDefinition{
		Name:        "fetch_page",
		Description: "Fetch a URL and return its readable content as markdown text.",
		InputSchema: InputSchema(&FetchPageArgs{}),
	}, f.handleFetchPage)
	s.AddTool(schema.ToolDefinition{
		Name: "extract_recipe",
		Description: "Fetch a recipe web page and return its structured recipe " +
			"(name, yield, times, ingredients, steps). Falls back to page text when the site has no recipe markup.",
		InputSchema: InputSchema(&ExtractRecipeArgs{}),
	}, f.handleExtractRecipe)
	return s
}

func (f *Fetcher) handleFetchPage(ctx context.Context, raw schema.Object) (string, error) {
	var args FetchPageArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	page, err := f.FetchPage(ctx, args.URL, args.MaxChars)
	if err != nil {
		return "", err
	}
	return page.JSON(), nil
}

func (f *Fetcher) handleExtractRecipe(ctx context.Context, raw schema.Object) (string, error) {
	var args ExtractRecipeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	return f.ExtractRecipe(ctx, args.URL)
}

func decodeArgs(raw schema.Object, dst any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// InputSchema reflects a tool argument struct into an inline JSON Schema
// object.
func InputSchema(v any) schema.Object {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return schema.EmptyInputSchema()
	}
	obj := schema.ParseObject(data)
	delete(obj, "$schema")
	return obj
}
