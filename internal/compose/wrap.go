// Package compose renders a photo record and its caption into a single
// downloadable image.
package compose

import (
	"strings"

	"golang.org/x/image/font"
)

// WrapText word-wraps text so that every line's measured width stays within
// maxWidth pixels. Words are accumulated greedily onto the current line;
// when the next word would overflow a non-empty line, the line is closed
// and the word starts the next one. A single word is never split, even if
// it alone exceeds maxWidth. Wrapping is deterministic: the same text and
// width always produce the same lines.
func WrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	drawer := &font.Drawer{Face: face}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if drawer.MeasureString(candidate).Ceil() > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

// measureSpaced returns the pixel width of text drawn with extra spacing
// between letters.
func measureSpaced(face font.Face, text string, spacing int) int {
	drawer := &font.Drawer{Face: face}
	runes := []rune(text)
	width := drawer.MeasureString(text).Ceil()
	if len(runes) > 1 {
		width += spacing * (len(runes) - 1)
	}
	return width
}
