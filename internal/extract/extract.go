// Package extract recovers a JSON object from model output that is supposed to be
// JSON but often arrives wrapped in prose, inside code fences, or truncated.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoObjectFound is returned when no strategy yields a usable object.
var ErrNoObjectFound = errors.New("no JSON object found in model output")

// Method names the strategy that produced a Result.
type Method string

const (
	MethodDirectParse      Method = "direct_parse"
	MethodBalancedFragment Method = "balanced_fragment"
	MethodRegexFallback    Method = "regex_fallback"
	// MethodRawText marks output taken verbatim when no strategy succeeded.
	MethodRawText Method = "raw_text"
)

// Keys recovered by the regex fallback.
const (
	KeyTitle   = "title"
	KeyContent = "content"
)

// Options controls the regex fallback placeholders.
type Options struct {
	TitlePlaceholder   string
	ContentPlaceholder string
}

// PlaceholdersFor returns the fallback placeholders for a language tag.
// Unknown tags get the English set.
func PlaceholdersFor(lang string) Options {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "vi", "vi-vn":
		return Options{
			TitlePlaceholder:   "Không có tiêu đề",
			ContentPlaceholder: "Không có nội dung được tạo.",
		}
	default:
		return Options{
			TitlePlaceholder:   "no title found",
			ContentPlaceholder: "no content generated",
		}
	}
}

func (o Options) withDefaults() Options {
	def := PlaceholdersFor("")
	if o.TitlePlaceholder == "" {
		o.TitlePlaceholder = def.TitlePlaceholder
	}
	if o.ContentPlaceholder == "" {
		o.ContentPlaceholder = def.ContentPlaceholder
	}
	return o
}

// Result is the object recovered from raw output.
type Result struct {
	// JSON is the text that was parsed. For the regex fallback it is the
	// re-encoded two-key object.
	JSON   string
	Method Method
	Fields map[string]any
}

var (
	titleRe   = keyPattern(KeyTitle)
	contentRe = keyPattern(KeyContent)
)

func keyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + key + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// Extract runs the strategies in order and returns the first success.
func Extract(raw string, opts Options) (Result, error) {
	stripped := StripFences(raw)
	if fields, err := parseObject(stripped); err == nil {
		return Result{JSON: stripped, Method: MethodDirectParse, Fields: fields}, nil
	}

	if frag, ok := BalancedFragment(raw); ok {
		if fields, err := parseObject(frag); err == nil {
			return Result{JSON: frag, Method: MethodBalancedFragment, Fields: fields}, nil
		}
	}

	title, hasTitle := matchString(titleRe, raw)
	content, hasContent := matchString(contentRe, raw)
	if !hasTitle && !hasContent {
		return Result{}, ErrNoObjectFound
	}

	opts = opts.withDefaults()
	if !hasTitle {
		title = opts.TitlePlaceholder
	}
	if !hasContent {
		content = opts.ContentPlaceholder
	}
	fields := map[string]any{KeyTitle: title, KeyContent: content}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return Result{}, fmt.Errorf("encode recovered fields: %w", err)
	}
	return Result{JSON: string(encoded), Method: MethodRegexFallback, Fields: fields}, nil
}

// StripFences removes every markdown code-fence marker and trims the result.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// BalancedFragment returns the substring from the first '{' to the brace that
// brings nesting depth back to zero. Braces inside string literals are ignored.
func BalancedFragment(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func parseObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, errors.New("empty input")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("not an object")
	}
	// Trailing garbage means the input was not a single object.
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	return fields, nil
}

func matchString(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return unescape(m[1]), true
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)

func unescape(s string) string {
	return unescaper.Replace(s)
}
