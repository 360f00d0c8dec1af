package wordlimit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func sentence(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ") + "."
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"Hello, world!", 2},
		{"Sản phẩm tuyệt vời", 4},
		{"snake_case and 42", 3},
		{"  \n\t ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnforceTruncatesAtSentenceBoundary(t *testing.T) {
	var parts []string
	for i := 0; i < 50; i++ {
		parts = append(parts, sentence(10))
	}
	text := strings.Join(parts, " ")

	var e Enforcer
	got := e.Enforce(context.Background(), text, Window{MaxWords: 205}, nil)
	if n := CountWords(got); n != 200 {
		t.Errorf("words = %d, want 200", n)
	}
	if !strings.HasPrefix(text, got) {
		t.Error("result is not a prefix of the input")
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("result does not end at a sentence: %q", got[len(got)-10:])
	}
}

func TestEnforceLongFirstSentenceCutsAtWord(t *testing.T) {
	text := sentence(30) + " " + sentence(5)
	var e Enforcer
	got := e.Enforce(context.Background(), text, Window{MaxWords: 12}, nil)
	if n := CountWords(got); n != 12 {
		t.Errorf("words = %d, want 12", n)
	}
	if !strings.HasPrefix(text, got) {
		t.Error("result is not a prefix of the input")
	}
}

func TestEnforceWithinWindowUnchanged(t *testing.T) {
	text := "  Short text!  Exactly as it was.\n"
	called := false
	expand := func(context.Context, string, int) (string, error) {
		called = true
		return "", nil
	}
	var e Enforcer
	got := e.Enforce(context.Background(), text, Window{MinWords: 3, MaxWords: 10}, expand)
	if got != text {
		t.Errorf("got %q, want unchanged", got)
	}
	if called {
		t.Error("expand called for in-window text")
	}
}

func TestEnforceExpandsOnce(t *testing.T) {
	calls := 0
	expand := func(_ context.Context, text string, minWords int) (string, error) {
		calls++
		if minWords != 20 {
			t.Errorf("minWords = %d", minWords)
		}
		return "## Heading\n**" + sentence(25) + "**", nil
	}
	var e Enforcer
	got := e.Enforce(context.Background(), "Too short.", Window{MinWords: 20, MaxWords: 100}, expand)
	if calls != 1 {
		t.Errorf("expand calls = %d, want 1", calls)
	}
	if strings.Contains(got, "#") || strings.Contains(got, "**") {
		t.Errorf("markup not stripped: %q", got)
	}
	if n := CountWords(got); n != 26 {
		t.Errorf("words = %d, want 26", n)
	}
}

func TestEnforceExpansionStillShortIsAccepted(t *testing.T) {
	calls := 0
	expand := func(context.Context, string, int) (string, error) {
		calls++
		return sentence(8), nil
	}
	var e Enforcer
	got := e.Enforce(context.Background(), "Two words.", Window{MinWords: 50}, expand)
	if calls != 1 {
		t.Errorf("expand calls = %d, want 1", calls)
	}
	if CountWords(got) != 8 {
		t.Errorf("got %q", got)
	}
}

func TestEnforceExpansionFailureKeepsOriginal(t *testing.T) {
	tests := []struct {
		name   string
		expand ExpandFunc
	}{
		{"error", func(context.Context, string, int) (string, error) { return "", errors.New("boom") }},
		{"empty", func(context.Context, string, int) (string, error) { return "   ", nil }},
		{"shorter", func(context.Context, string, int) (string, error) { return "x", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Enforcer
			got := e.Enforce(context.Background(), "Two words.", Window{MinWords: 50}, tt.expand)
			if got != "Two words." {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestEnforceExpansionOvershootIsTruncated(t *testing.T) {
	expand := func(context.Context, string, int) (string, error) {
		return sentence(10) + " " + sentence(10) + " " + sentence(10), nil
	}
	var e Enforcer
	got := e.Enforce(context.Background(), "Short.", Window{MinWords: 5, MaxWords: 25}, expand)
	if n := CountWords(got); n != 20 {
		t.Errorf("words = %d, want 20", n)
	}
}

func TestEnforceDisabledSides(t *testing.T) {
	text := sentence(40)
	var e Enforcer
	if got := e.Enforce(context.Background(), text, Window{}, nil); got != text {
		t.Error("zero window changed text")
	}
	if got := e.Enforce(context.Background(), text, Window{MinWords: 50, MaxWords: 10}, nil); got != text {
		t.Error("inverted window changed text")
	}
}

func TestStripMarkup(t *testing.T) {
	in := "```markdown\n# Title\nSome **bold** and __under__ text\n```"
	want := "Title\nSome bold and under text"
	if got := StripMarkup(in); got != want {
		t.Errorf("StripMarkup = %q, want %q", got, want)
	}
}

func TestWindowValid(t *testing.T) {
	tests := []struct {
		w    Window
		want bool
	}{
		{Window{}, false},
		{Window{MinWords: 10}, true},
		{Window{MaxWords: 10}, true},
		{Window{MinWords: 10, MaxWords: 20}, true},
		{Window{MinWords: 30, MaxWords: 20}, false},
	}
	for _, tt := range tests {
		if got := tt.w.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.w, got, tt.want)
		}
	}
}
