package agent

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSystemPrompt is used when none is configured.
const DefaultSystemPrompt = `You are the recipe assistant of a personal recipe collection.

You can look up, create, update and delete recipes, ingredients and steps
through the tools available to you, and read recipes from web pages.

Reply directly with text when no tool is needed. Before changing or deleting
a recipe, make sure you have the right one. Keep answers short, and list
recipes with their titles. Never invent recipe ids: look them up first.`

// PromptBuilder assembles the system prompt sent with every completion.
type PromptBuilder struct {
	base string
	now  func() time.Time
}

// NewPromptBuilder returns a builder around base. An empty base uses
// DefaultSystemPrompt.
func NewPromptBuilder(base string) *PromptBuilder {
	if strings.TrimSpace(base) == "" {
		base = DefaultSystemPrompt
	}
	return &PromptBuilder{base: base, now: time.Now}
}

// Build returns the base prompt followed by the current local time.
func (b *PromptBuilder) Build() string {
	now := b.now()
	tz, _ := now.Zone()
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf("%s\n\n## Current Time\n%s (%s)", b.base, now.Format("2006-01-02 15:04 (Monday)"), tz)
}
