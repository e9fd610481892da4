package formatting

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// speaker tags emitted by the diarization step ahead of us.
var speakerTags = strings.NewReplacer(
	"[CALLER]", " ",
	"[OPERATOR]", " ",
	"CALLER:", " ",
	"OPERATOR:", " ",
	"신고자:", " ",
	"접수자:", " ",
)

// NormalizeTranscript prepares a call transcript for matching: Hangul is
// composed to NFC so decomposed jamo from some STT engines still match the
// rule tables, ideographic spaces become ASCII spaces and runs of whitespace
// collapse to one.
func NormalizeTranscript(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\u3000", " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// StripSpeakerTags removes diarization labels so they never leak into
// literal matches.
func StripSpeakerTags(text string) string {
	return NormalizeTranscript(speakerTags.Replace(text))
}
