package service

import (
	"fmt"
	"strings"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
)

// Prompt is the message pair sent to a generative provider
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You are a senior e-commerce content writer producing SEO-friendly blog articles for an online store.
Respond with a single JSON object and nothing else, using exactly these fields:
{"title": string, "content": string (markdown, no top-level heading), "tags": [string], "metaDescription": string (max 155 characters)}`

// BuildPrompt renders the provider prompt for a generation request
func BuildPrompt(req entity.Request) Prompt {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Write a complete blog article about: %s\n", strings.TrimSpace(req.Topic)))

	tone := req.Tone
	if tone.WordCount > 0 {
		sb.WriteString(fmt.Sprintf("- Target length: about %d words.\n", tone.WordCount))
	}
	if tone.Voice != "" {
		sb.WriteString(fmt.Sprintf("- Tone of voice: %s.\n", tone.Voice))
	}
	if tone.Audience != "" {
		sb.WriteString(fmt.Sprintf("- Audience: %s.\n", tone.Audience))
	}
	if tone.Language != "" {
		sb.WriteString(fmt.Sprintf("- Write in %s.\n", tone.Language))
	}
	if len(req.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf("- Work in these keywords naturally: %s.\n", strings.Join(req.Keywords, ", ")))
	}
	if len(req.RelatedTopics) > 0 {
		sb.WriteString("- This article belongs to a topic cluster. Reference these related articles where relevant:\n")
		for _, rt := range req.RelatedTopics {
			sb.WriteString(fmt.Sprintf("  - %s\n", rt))
		}
	}
	sb.WriteString("- Use H2/H3 subheadings, short paragraphs and a closing call to action.\n")
	sb.WriteString("- Provide 3 to 6 lowercase tags.\n")

	if sp := strings.TrimSpace(req.StylePrompt); sp != "" {
		sb.WriteString("\nAdditional style instructions:\n")
		sb.WriteString(sp)
		sb.WriteString("\n")
	}

	return Prompt{
		System: systemPrompt,
		User:   sb.String(),
	}
}
