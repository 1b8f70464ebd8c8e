// Package textutil holds the small text helpers shared by generation and reconciliation.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinContentWordLen is the rune length a word must exceed to count as content-bearing
const MinContentWordLen = 3

// ContentWords returns the lowercased, de-duplicated words of s longer than
// MinContentWordLen runes, in order of first appearance.
func ContentWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var words []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= MinContentWordLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	return words
}

var (
	linkRe     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
	mdMarkerRe = regexp.MustCompile("(?m)^\\s*(#{1,6}|>|[-*+]|\\d+\\.)\\s+")
	emphasisRe = regexp.MustCompile("[*_`~]+")
)

// PlainText strips the common markdown and HTML markup from s and collapses whitespace
func PlainText(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = mdMarkerRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Preview returns at most limit runes of the plain text of s, cut at a word boundary when possible
func Preview(s string, limit int) string {
	plain := PlainText(s)
	if utf8.RuneCountInString(plain) <= limit {
		return plain
	}

	runes := []rune(plain)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
