package strings

import (
	"strings"
)

// DefaultErrorMaxLen is the longest provider error shown in a single table cell.
const DefaultErrorMaxLen = 120

// ellipsis marks text that was cut short.
const ellipsis = "..."

// SingleLine collapses all whitespace runs in s (newlines included) into
// single spaces and cuts the result to at most maxLen runes, ending in
// "..." when shortened. Identity provider errors often span several lines
// with trace and correlation ids; this keeps them readable in a terminal.
//
// maxLen values below 4 are raised to 4 so at least one rune survives.
func SingleLine(s string, maxLen int) string {
	if maxLen < len(ellipsis)+1 {
		maxLen = len(ellipsis) + 1
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
