package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	fallbackEncoding = "cl100k_base"
	// responseMargin covers chat message framing the tokenizer does not see
	responseMargin = 64
	// minCompletion keeps a request useful when the prompt almost fills the window
	minCompletion = 256
)

// Counter counts prompt tokens for a model. The encoding is loaded on first use;
// when it cannot be loaded the count falls back to one token per four characters.
type Counter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter creates a counter for model
func NewCounter(model string) *Counter {
	return &Counter{model: model}
}

// NewHeuristicCounter creates a counter that never loads an encoding
func NewHeuristicCounter() *Counter {
	c := &Counter{}
	c.once.Do(func() {})
	return c
}

func (c *Counter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return
		}
	}
	c.enc = enc
}

// Count returns the token count of text
func (c *Counter) Count(text string) int {
	if c == nil {
		return estimate(text)
	}
	c.once.Do(c.load)
	if c.enc == nil {
		return estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Budget clamps completion sizes to what fits in a model's context window
type Budget struct {
	Counter       *Counter
	ContextWindow int
}

// Clamp returns requested, reduced so that the prompt plus the completion fit the window.
// A non-positive requested value is returned unchanged.
func (b Budget) Clamp(requested int, prompt ...string) int {
	if requested <= 0 || b.ContextWindow <= 0 {
		return requested
	}

	used := responseMargin
	for _, p := range prompt {
		used += b.Counter.Count(p)
	}

	available := b.ContextWindow - used
	if available < minCompletion {
		available = minCompletion
	}
	if requested > available {
		return available
	}
	return requested
}
