// Package wordlimit keeps generated text inside a word-count window by cutting at
// sentence boundaries or asking the model once for a longer version.
package wordlimit

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
	sentenceRe = regexp.MustCompile(`[.!?]\s+`)
	fenceRe    = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	headingRe  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	emphasisRe = regexp.MustCompile(`\*\*|__`)
)

// Window bounds a field's word count. A non-positive bound disables that side.
type Window struct {
	MinWords int `json:"min_words" mapstructure:"min_words" yaml:"min_words"`
	MaxWords int `json:"max_words" mapstructure:"max_words" yaml:"max_words"`
}

// Valid reports whether the window constrains anything and is not inverted.
func (w Window) Valid() bool {
	if w.MinWords <= 0 && w.MaxWords <= 0 {
		return false
	}
	return w.MaxWords <= 0 || w.MinWords <= w.MaxWords
}

// ExpandFunc asks the model for a longer version of text with at least minWords words.
type ExpandFunc func(ctx context.Context, text string, minWords int) (string, error)

// Enforcer applies windows. The zero value is usable.
type Enforcer struct {
	Logger *slog.Logger
}

func (e *Enforcer) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// CountWords returns the number of Unicode word runs in s.
func CountWords(s string) int {
	return len(wordRe.FindAllStringIndex(s, -1))
}

// Enforce returns text adjusted to w. Text already inside the window is returned
// unchanged. expand is called at most once, and only when text is too short.
func (e *Enforcer) Enforce(ctx context.Context, text string, w Window, expand ExpandFunc) string {
	if w.MinWords > 0 && w.MaxWords > 0 && w.MinWords > w.MaxWords {
		e.logger().Warn("ignoring inverted word window", "min", w.MinWords, "max", w.MaxWords)
		return text
	}
	n := CountWords(text)

	if w.MaxWords > 0 && n > w.MaxWords {
		out := Truncate(text, w.MaxWords)
		e.logger().Debug("truncated text", "words", n, "max", w.MaxWords, "kept", CountWords(out))
		return out
	}

	if w.MinWords > 0 && n < w.MinWords && expand != nil {
		expanded, err := expand(ctx, text, w.MinWords)
		if err != nil {
			e.logger().Warn("expansion failed, keeping original", "words", n, "min", w.MinWords, "error", err)
			return text
		}
		expanded = StripMarkup(expanded)
		m := CountWords(expanded)
		e.logger().Debug("expanded text", "words", n, "expanded_words", m, "min", w.MinWords)
		if m <= n {
			return text
		}
		if w.MaxWords > 0 && m > w.MaxWords {
			return Truncate(expanded, w.MaxWords)
		}
		return expanded
	}

	return text
}

// Truncate returns the longest prefix of text made of whole sentences whose word
// count stays within maxWords. If the first sentence alone is longer, it cuts after
// the maxWords-th word. The result is always a prefix of text minus trailing space.
func Truncate(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	if CountWords(text) <= maxWords {
		return text
	}

	end, total := 0, 0
	for _, span := range sentences(text) {
		wc := CountWords(text[span[0]:span[1]])
		if total+wc > maxWords {
			break
		}
		total += wc
		end = span[1]
	}
	if total == 0 {
		return cutAtWord(text, maxWords)
	}
	return strings.TrimRight(text[:end], " \t\r\n")
}

// sentences splits text into [start, end) spans. Each span ends just after its
// terminator; the whitespace between sentences belongs to no span.
func sentences(text string) [][2]int {
	var out [][2]int
	start := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		out = append(out, [2]int{start, loc[0] + 1})
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, [2]int{start, len(text)})
	}
	return out
}

func cutAtWord(text string, maxWords int) string {
	locs := wordRe.FindAllStringIndex(text, maxWords)
	if len(locs) == 0 {
		return ""
	}
	return text[:locs[len(locs)-1][1]]
}

// StripMarkup removes code fences, heading markers and bold/underline emphasis.
func StripMarkup(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
