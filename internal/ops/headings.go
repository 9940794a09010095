package ops

import (
	"regexp"
	"strings"
)

// headingPattern matches ATX headings (h1-h6) at the start of a line.
// Groups: full match, hash symbols, heading text.
var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+([^\n]*?)[ \t]*$`)

// fencePattern matches fenced code block delimiters (``` or ~~~) at the start
// of a line, allowing 0-3 spaces of indentation.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// fencedRanges returns byte offset ranges [start, end) of fenced code blocks.
// A closing fence must use the same character and be at least as long as the
// opening one. An unclosed fence runs to the end of text.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false

	for _, match := range matches {
		fence := text[match[2]:match[3]]
		switch {
		case !inFence:
			openChar, openLen, openStart = fence[0], len(fence), match[0]
			inFence = true
		case fence[0] == openChar && len(fence) >= openLen:
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
	}
	if inFence {
		ranges = append(ranges, [2]int{openStart, len(text)})
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// nestHeadings pushes every heading in text down by depth levels, capped at
// h6, so note content cannot open a section that competes with the page and
// note headings of an export. Headings inside fenced code are left alone.
func nestHeadings(text string, depth int) string {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	fences := fencedRanges(text)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if insideFence(m[0], fences) {
			continue
		}
		level := min(6, (m[3]-m[2])+depth)
		b.WriteString(text[last:m[2]])
		b.WriteString(strings.Repeat("#", level))
		last = m[3]
	}
	b.WriteString(text[last:])
	return b.String()
}
