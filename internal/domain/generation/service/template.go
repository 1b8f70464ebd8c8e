package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/textutil"
)

// TemplateProviderName is the name the template fallback reports
const TemplateProviderName = "template"

// TemplateProvider synthesizes an article from the topic alone. It never fails.
type TemplateProvider struct{}

// NewTemplateProvider creates the template fallback provider
func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{}
}

func (t *TemplateProvider) Name() string { return TemplateProviderName }

func (t *TemplateProvider) Deterministic() bool { return true }

// Generate renders the template article as JSON, the same shape real providers are asked for
func (t *TemplateProvider) Generate(_ context.Context, prompt Prompt, _ int) (string, error) {
	a := Compose(topicFromPrompt(prompt.User))
	out, err := json.Marshal(a)
	if err != nil {
		// An Article of plain strings always marshals; keep a readable fallback anyway.
		return fmt.Sprintf("# %s\n\n%s", a.Title, a.Content), nil
	}
	return string(out), nil
}

// Compose builds the template article for a topic
func Compose(topic string) entity.Article {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "our latest collection"
	}
	subject := titleCase(topic)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Looking for practical advice on %s? This guide collects the essentials so you can make a confident choice.\n\n", topic)
	fmt.Fprintf(&sb, "## Why %s matters\n\n", subject)
	fmt.Fprintf(&sb, "Getting %s right saves time and money. Knowing what to look for helps you avoid common mistakes and pick what actually fits your needs.\n\n", topic)
	sb.WriteString("## What to look for\n\n")
	sb.WriteString("- Quality materials and honest craftsmanship\n")
	sb.WriteString("- A fit for how you will really use it every day\n")
	sb.WriteString("- Clear care instructions and a fair return policy\n\n")
	sb.WriteString("## Our recommendations\n\n")
	fmt.Fprintf(&sb, "Start with your priorities, compare a few options side by side and read reviews from people with similar needs. Our team has picked options for %s that balance value and durability.\n\n", topic)
	sb.WriteString("## Final thoughts\n\n")
	fmt.Fprintf(&sb, "With these tips you are ready to choose well. Browse our store to explore everything related to %s.\n", topic)

	tags := textutil.ContentWords(topic)
	if len(tags) > 5 {
		tags = tags[:5]
	}
	if len(tags) == 0 {
		tags = []string{strings.ToLower(topic)}
	}

	content := sb.String()
	return entity.Article{
		Title:           fmt.Sprintf("%s: A Practical Guide", subject),
		Content:         content,
		Tags:            tags,
		MetaDescription: textutil.Preview(content, metaDescMaxLen),
	}
}

// topicFromPrompt recovers the topic from the first line of a user prompt built by BuildPrompt
func topicFromPrompt(user string) string {
	first, _, _ := strings.Cut(user, "\n")
	if _, topic, ok := strings.Cut(first, "about:"); ok {
		return strings.TrimSpace(topic)
	}
	return strings.TrimSpace(first)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
