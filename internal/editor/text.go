package editor

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/roach88/nbsync/internal/protocol"
)

func applyTextChange(text string, ch TextChange) (string, error) {
	if ch.Range == nil {
		return ch.Text, nil
	}
	start, err := offsetOf(text, ch.Range.Start)
	if err != nil {
		return "", err
	}
	end, err := offsetOf(text, ch.Range.End)
	if err != nil {
		return "", err
	}
	if end < start {
		return "", fmt.Errorf("range end %v before start %v", ch.Range.End, ch.Range.Start)
	}
	return text[:start] + ch.Text + text[end:], nil
}

// offsetOf converts a line/character position, with characters counted in
// UTF-16 code units, to a byte offset. Positions past the end of a line
// clamp to the line end.
func offsetOf(text string, pos protocol.Position) (int, error) {
	line := uint32(0)
	i := 0
	for line < pos.Line {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("line %d beyond end of document", pos.Line)
		}
		i += nl + 1
		line++
	}

	units := uint32(0)
	for i < len(text) && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			break
		}
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += uint32(n)
		i += size
	}
	return i, nil
}
