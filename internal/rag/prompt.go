package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"ragbot/internal/models"
)

// FormatPassages renders retrieved passages positionally as [#1], [#2], …
// with a human-readable source locator each, so the completion can cite
// them and the caller can map citations back to sources.
func FormatPassages(passages []models.Passage) string {
	if len(passages) == 0 {
		return models.NoSourcesPlaceholder
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		title := p.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(&sb, "[#%d] %s (%s)\n%s", i+1, title, p.Source, p.Content)
	}
	return sb.String()
}

// BuildPrompt assembles the ordered message list: fixed system instruction,
// citation instruction, sources block, trailing history window, then the
// new user message.
func BuildPrompt(history []Message, passages []models.Passage, userText string) []llms.MessageContent {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeSystem, models.CitationPrompt),
		llms.TextParts(llms.ChatMessageTypeSystem, "Sources:\n"+FormatPassages(passages)),
	}
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, userText))
}
