// Package caption turns recognized speech into subtitle-ready text: it
// normalizes the raw tagged ASR output, extracts the spoken language, and
// manages best-effort translation with a lazily loaded backend.
package caption

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SenseVoice-style output decorates the transcript with inline markers: a
// leading language tag, an event emoji prefix per language span (music,
// applause, ...) and an emotion emoji suffix. Spans split on language tags
// repeat the markers, so adjacent duplicates must collapse before the tags
// are stripped.

var emotionMarks = map[rune]bool{
	'😊': true, '😔': true, '😡': true, '😰': true, '🤢': true, '😮': true,
}

var eventMarks = map[rune]bool{
	'🎼': true, '👏': true, '😀': true, '😭': true, '🤧': true, '😷': true,
}

var langTags = []string{"<|zh|>", "<|en|>", "<|yue|>", "<|ja|>", "<|ko|>", "<|nospeech|>"}

var (
	tagPattern     = regexp.MustCompile(`<\|.*?\|>`)
	leadingLangTag = regexp.MustCompile(`^<\|([a-z]{2,3})\|>`)
	translatable   = regexp.MustCompile(`[^\x{4e00}-\x{9fa5}a-zA-Z0-9，。！？、,.!?;:：；“”‘’"'\s]`)
)

// emotionOf returns the trailing emotion marker of s, or 0 when absent.
func emotionOf(s string) rune {
	r, size := utf8.DecodeLastRuneInString(s)
	if size > 0 && emotionMarks[r] {
		return r
	}
	return 0
}

// eventOf returns the leading event marker of s, or 0 when absent.
func eventOf(s string) rune {
	r, size := utf8.DecodeRuneInString(s)
	if size > 0 && eventMarks[r] {
		return r
	}
	return 0
}

// CollapseMarkers rewrites the raw transcript so that event and emotion
// markers repeated across adjacent language spans appear only once. Language
// tags themselves are consumed by the split; other tags pass through for
// [StripTags] to remove.
func CollapseMarkers(s string) string {
	s = strings.ReplaceAll(s, "<|nospeech|><|Event_UNK|>", "❓")
	for _, tag := range langTags {
		s = strings.ReplaceAll(s, tag, "<|lang|>")
	}

	parts := strings.Split(s, "<|lang|>")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	out := ""
	if len(parts) > 0 {
		out = " " + parts[0]
	}
	curEvent := eventOf(out)
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		if ev := eventOf(part); ev != 0 && ev == curEvent {
			_, size := utf8.DecodeRuneInString(part)
			part = part[size:]
		}
		curEvent = eventOf(part)
		if em := emotionOf(part); em != 0 && em == emotionOf(out) {
			_, size := utf8.DecodeLastRuneInString(out)
			out = out[:len(out)-size]
		}
		out += strings.TrimSpace(part)
	}

	out = strings.ReplaceAll(out, "The.", " ")
	return strings.TrimSpace(out)
}

// StripTags removes every bracketed tag marker and the raw ITN artifacts,
// leaving only the spoken text.
func StripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "withitn", "")
	s = strings.ReplaceAll(s, "woitn", "")
	return strings.TrimSpace(s)
}

// CleanForTranslate keeps only Han characters, Latin letters, digits, common
// punctuation, and whitespace so emoji and leftover marker symbols never
// reach the translation backend.
func CleanForTranslate(s string) string {
	return translatable.ReplaceAllString(s, "")
}

// ExtractLang returns the two- or three-letter language code from the leading
// language tag of the raw transcript, or the empty string when no tag is
// present.
func ExtractLang(raw string) string {
	if m := leadingLangTag.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
