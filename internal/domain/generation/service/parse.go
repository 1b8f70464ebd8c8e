package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/textutil"
)

const (
	maxTags        = 8
	metaDescMaxLen = 155
)

// parseStrategy is one rung of the recovery ladder
type parseStrategy struct {
	name  string
	parse func(raw string) (entity.Article, bool)
}

// parseLadder is ordered from strictest to loosest
var parseLadder = []parseStrategy{
	{name: "strict_json", parse: parseStrictJSON},
	{name: "regex_fields", parse: parseRegexFields},
	{name: "balanced_json", parse: parseBalancedJSON},
	{name: "line_heuristics", parse: parseLineHeuristics},
}

// ParseArticle extracts an article from raw provider output, trying each strategy
// of the ladder in turn. It returns the name of the strategy that succeeded.
func ParseArticle(raw, topic string) (entity.Article, string, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.Article{}, "", entity.ErrEmptyOutput
	}

	for _, s := range parseLadder {
		a, ok := s.parse(raw)
		if !ok {
			continue
		}
		a = normalizeArticle(a, topic)
		if a.Title == "" || a.Content == "" {
			continue
		}
		return a, s.name, nil
	}

	return entity.Article{}, "", entity.ErrUnparseableOutput
}

// rawArticle accepts the field spellings providers actually return
type rawArticle struct {
	Title              string          `json:"title"`
	Content            string          `json:"content"`
	Body               string          `json:"body"`
	Tags               json.RawMessage `json:"tags"`
	MetaDescription    string          `json:"metaDescription"`
	MetaDescriptionAlt string          `json:"meta_description"`
}

func (r rawArticle) article() entity.Article {
	content := r.Content
	if content == "" {
		content = r.Body
	}
	meta := r.MetaDescription
	if meta == "" {
		meta = r.MetaDescriptionAlt
	}
	return entity.Article{
		Title:           r.Title,
		Content:         content,
		Tags:            decodeTags(r.Tags),
		MetaDescription: meta,
	}
}

// decodeTags accepts either a JSON array of strings or a comma separated string
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return splitTags(s)
	}
	return nil
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return s
}

func parseStrictJSON(raw string) (entity.Article, bool) {
	var r rawArticle
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &r); err != nil {
		return entity.Article{}, false
	}
	return r.article(), true
}

const jsonStringBody = `((?:[^"\\]|\\.)*)`

var (
	titleFieldRe   = regexp.MustCompile(`"title"\s*:\s*"` + jsonStringBody + `"`)
	contentFieldRe = regexp.MustCompile(`"(?:content|body)"\s*:\s*"` + jsonStringBody + `"`)
	metaFieldRe    = regexp.MustCompile(`"(?:metaDescription|meta_description)"\s*:\s*"` + jsonStringBody + `"`)
	tagsArrayRe    = regexp.MustCompile(`(?s)"tags"\s*:\s*\[(.*?)\]`)
	tagsStringRe   = regexp.MustCompile(`"tags"\s*:\s*"` + jsonStringBody + `"`)
	quotedItemRe   = regexp.MustCompile(`"` + jsonStringBody + `"`)
)

// parseRegexFields pulls individual fields out of JSON-ish text that does not decode as a whole
func parseRegexFields(raw string) (entity.Article, bool) {
	title := firstGroup(titleFieldRe, raw)
	content := firstGroup(contentFieldRe, raw)
	if title == "" || content == "" {
		return entity.Article{}, false
	}

	a := entity.Article{
		Title:           unescapeJSONString(title),
		Content:         unescapeJSONString(content),
		MetaDescription: unescapeJSONString(firstGroup(metaFieldRe, raw)),
	}

	if m := tagsArrayRe.FindStringSubmatch(raw); len(m) == 2 {
		for _, item := range quotedItemRe.FindAllStringSubmatch(m[1], -1) {
			a.Tags = append(a.Tags, unescapeJSONString(item[1]))
		}
	} else if s := firstGroup(tagsStringRe, raw); s != "" {
		a.Tags = splitTags(unescapeJSONString(s))
	}

	return a, true
}

// parseBalancedJSON finds brace-balanced objects in the text, repairs raw control
// characters inside string literals and decodes the first object that has an article.
func parseBalancedJSON(raw string) (entity.Article, bool) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		candidate, end := balancedObject(raw, start)
		if candidate != "" {
			var r rawArticle
			if err := json.Unmarshal([]byte(candidate), &r); err == nil {
				a := r.article()
				if a.Title != "" && a.Content != "" {
					return a, true
				}
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 || end < 0 {
			break
		}
		start = start + 1 + next
	}
	return entity.Article{}, false
}

// balancedObject returns the object starting at raw[start] with control characters
// inside strings escaped, and the index of its closing brace (-1 when unbalanced).
func balancedObject(raw string, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				sb.WriteByte(c)
			case c == '\\':
				escaped = true
				sb.WriteByte(c)
			case c == '"':
				inString = false
				sb.WriteByte(c)
			case c == '\n':
				sb.WriteString(`\n`)
			case c == '\r':
				sb.WriteString(`\r`)
			case c == '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteByte(c)
			}
			continue
		}

		sb.WriteByte(c)
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return sb.String(), i
			}
		}
	}
	return "", -1
}

var (
	headingTitleRe = regexp.MustCompile(`^#{1,2}\s+(.+)$`)
	labelTitleRe   = regexp.MustCompile(`(?i)^\**title\**\s*:\s*(.+)$`)
	labelTagsRe    = regexp.MustCompile(`(?i)^\**(?:tags|keywords)\**\s*:\s*(.+)$`)
	labelMetaRe    = regexp.MustCompile(`(?i)^\**meta ?description\**\s*:\s*(.+)$`)
	hashtagRe      = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}][\p{L}\p{N}_-]*)`)
)

// parseLineHeuristics reads markdown or labelled plain text line by line
func parseLineHeuristics(raw string) (entity.Article, bool) {
	lines := strings.Split(strings.ReplaceAll(stripCodeFences(raw), "\r\n", "\n"), "\n")

	var a entity.Article
	var body []string
	titleFound := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !titleFound {
			if m := labelTitleRe.FindStringSubmatch(trimmed); len(m) == 2 {
				a.Title = m[1]
				titleFound = true
				continue
			}
			if m := headingTitleRe.FindStringSubmatch(trimmed); len(m) == 2 {
				a.Title = m[1]
				titleFound = true
				continue
			}
		}
		if m := labelTagsRe.FindStringSubmatch(trimmed); len(m) == 2 {
			a.Tags = append(a.Tags, splitTags(m[1])...)
			continue
		}
		if m := labelMetaRe.FindStringSubmatch(trimmed); len(m) == 2 {
			a.MetaDescription = m[1]
			continue
		}
		body = append(body, line)
	}

	if !titleFound {
		// First short non-empty line doubles as the title.
		for i, line := range body {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if len(trimmed) <= 150 && i+1 < len(body) {
				a.Title = trimmed
				body = body[i+1:]
			}
			break
		}
	}

	a.Content = strings.TrimSpace(strings.Join(body, "\n"))
	if len(a.Tags) == 0 {
		for _, m := range hashtagRe.FindAllStringSubmatch(a.Content, -1) {
			a.Tags = append(a.Tags, m[1])
		}
	}

	return a, a.Title != "" && a.Content != ""
}

// normalizeArticle trims fields, cleans tags and derives missing tags and meta description
func normalizeArticle(a entity.Article, topic string) entity.Article {
	a.Title = strings.TrimSpace(strings.Trim(strings.TrimSpace(a.Title), `"'*#`))
	a.Content = strings.TrimSpace(a.Content)
	a.MetaDescription = strings.TrimSpace(a.MetaDescription)

	a.Tags = cleanTags(a.Tags)
	if len(a.Tags) == 0 {
		a.Tags = cleanTags(textutil.ContentWords(topic))
	}
	if len(a.Tags) == 0 && strings.TrimSpace(topic) != "" {
		a.Tags = []string{strings.ToLower(strings.TrimSpace(topic))}
	}

	if a.MetaDescription == "" && a.Content != "" {
		a.MetaDescription = textutil.Preview(a.Content, metaDescMaxLen)
	}
	return a
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(t), `#"'`)))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return ""
}

// unescapeJSONString decodes the body of a JSON string literal, tolerating raw control characters
func unescapeJSONString(s string) string {
	if s == "" {
		return ""
	}
	repaired := strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(s)
	var out string
	if err := json.Unmarshal([]byte(`"`+repaired+`"`), &out); err == nil {
		return out
	}
	return strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\\`, `\`, `\t`, "\t").Replace(s)
}
