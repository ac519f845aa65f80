package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptsCarryConfidenceRule(t *testing.T) {
	prompts := map[string]string{
		"email":     buildEmailPrompt("some email body"),
		"free text": buildFreeTextPrompt("coffee $4.50"),
	}

	for name, prompt := range prompts {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, prompt,
				"0.8 or higher only when every field is clearly identifiable")
			assert.Contains(t, prompt, "Food & Drink",
				"prompt should enumerate the category set")
		})
	}
}

func TestPromptsEmbedInput(t *testing.T) {
	assert.Contains(t, buildEmailPrompt("unique-marker-1"), "unique-marker-1")
	assert.Contains(t, buildFreeTextPrompt("unique-marker-2"), "unique-marker-2")
}
