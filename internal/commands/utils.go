package commands

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Discord's limit for a single message.
const MaxMessageLength = 2000

// SplitMessage breaks content into chunks of at most limit bytes, cutting on
// line boundaries. A single line longer than limit is cut at the last rune
// boundary that fits.
func SplitMessage(content string, limit int) []string {
	if len(content) <= limit {
		return []string{content}
	}
	var chunks []string
	var buffer strings.Builder
	for _, line := range strings.Split(content, "\n") {
		for len(line) > limit {
			if buffer.Len() > 0 {
				chunks = append(chunks, buffer.String())
				buffer.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if buffer.Len() > 0 && buffer.Len()+len(line)+1 > limit {
			chunks = append(chunks, buffer.String())
			buffer.Reset()
		}
		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
	}
	if buffer.Len() > 0 {
		chunks = append(chunks, buffer.String())
	}
	return chunks
}
