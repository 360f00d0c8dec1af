package marketing

import (
	"fmt"
	"slices"
	"strings"
)

// Tone is the voice of generated copy.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneEmotional    Tone = "emotional"
	ToneUrgent       Tone = "urgent"
	ToneHumorous     Tone = "humorous"
	ToneInformative  Tone = "informative"
)

var toneLabels = map[Tone]string{
	ToneProfessional: "Professional",
	ToneEmotional:    "Emotional & Relatable",
	ToneUrgent:       "Urgent & Scarcity",
	ToneHumorous:     "Humorous",
	ToneInformative:  "Informative & Educational",
}

// Tones lists the accepted tones.
func Tones() []Tone {
	return []Tone{ToneProfessional, ToneEmotional, ToneUrgent, ToneHumorous, ToneInformative}
}

// ParseTone accepts a tone name, case-insensitively.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := toneLabels[t]; !ok {
		return "", fmt.Errorf("%w: unknown tone %q (want one of %v)", ErrInvalidInput, s, Tones())
	}
	return t, nil
}

// Label is the description given to the model.
func (t Tone) Label() string {
	return toneLabels[t]
}

// Format is the shape of generated copy.
type Format string

const (
	FormatFacebookPost Format = "facebook_post"
	FormatAdCopy       Format = "ad_copy"
	FormatVideoScript  Format = "video_script"
)

var formatLabels = map[Format]string{
	FormatFacebookPost: "Facebook/Blog post (under 300 words)",
	FormatAdCopy:       "Short ad copy",
	FormatVideoScript:  "Short video script (under 60 seconds)",
}

// Formats lists the accepted formats.
func Formats() []Format {
	return []Format{FormatFacebookPost, FormatAdCopy, FormatVideoScript}
}

// ParseFormat accepts a format name, case-insensitively. Hyphens and spaces
// are read as underscores.
func ParseFormat(s string) (Format, error) {
	norm := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	f := Format(norm)
	if !slices.Contains(Formats(), f) {
		return "", fmt.Errorf("%w: unknown format %q (want one of %v)", ErrInvalidInput, s, Formats())
	}
	return f, nil
}

// Label is the description given to the model.
func (f Format) Label() string {
	return formatLabels[f]
}
