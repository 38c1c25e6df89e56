package service

import (
	"regexp"
	"strings"
)

var (
	srtCueHeader  = regexp.MustCompile(`\d+\s*\n\d{2}:\d{2}:\d{2},\d{3}\s*-->\s*\d{2}:\d{2}:\d{2},\d{3}`)
	srtBlankRuns  = regexp.MustCompile(`\n{2,}`)
	srtIndexLines = regexp.MustCompile(`(?m)^\d+\s*$`)
)

// SRTToPlainText reduces an SRT document to its spoken text.
// Invalid UTF-8 is dropped.
func SRTToPlainText(srt []byte) string {
	text := strings.ToValidUTF8(string(srt), "")
	text = srtCueHeader.ReplaceAllString(text, "")
	text = srtBlankRuns.ReplaceAllString(text, "\n")
	text = srtIndexLines.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
