// ABOUTME: Splits long message content at the platform's 2000-character limit
// ABOUTME: Newline-preserving packing, word fallback, oversized-word hard split

package discord

import "strings"

// MaxMessageLength is the hard per-message content limit.
const MaxMessageLength = 2000

// SplitMessage splits content into chunks of at most MaxMessageLength.
// Content within the limit is returned unmodified as a single chunk.
// Longer content is split on newlines first, packing whole lines into
// chunks; a single line over the limit is repacked word by word; a single
// word over the limit is hard-split at the limit, the remainder carrying
// into the next piece. Lengths are measured in bytes, which can only
// undershoot the platform's code-point limit, never exceed it.
func SplitMessage(content string) []string {
	if len(content) <= MaxMessageLength {
		return []string{content}
	}

	var chunks []string
	chunk := ""

	flush := func() {
		if chunk != "" {
			chunks = append(chunks, chunk)
			chunk = ""
		}
	}
	packLine := func(line string) {
		switch {
		case chunk == "":
			chunk = line
		case len(chunk)+1+len(line) <= MaxMessageLength:
			chunk += "\n" + line
		default:
			flush()
			chunk = line
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if len(line) <= MaxMessageLength {
			packLine(line)
			continue
		}

		// Line over the limit: repack it word by word into sub-lines.
		cur := ""
		packWord := func(word string) {
			switch {
			case cur == "":
				cur = word
			case len(cur)+1+len(word) <= MaxMessageLength:
				cur += " " + word
			default:
				packLine(cur)
				cur = word
			}
		}
		for _, word := range strings.Split(line, " ") {
			for len(word) > MaxMessageLength {
				packWord(word[:MaxMessageLength])
				word = word[MaxMessageLength:]
			}
			packWord(word)
		}
		if cur != "" {
			packLine(cur)
		}
	}
	flush()

	return chunks
}
