// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package treat

import (
	"strings"
	"unicode"
)

// Basic applies the rule-based treatment: ligature fixes, shouted section
// titles promoted to headings, and paragraphs spaced apart. It never
// reorders or rewords content.
func Basic(markdown string) string {
	lines := strings.Split(markdown, "\n")
	treated := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)

		line = strings.ReplaceAll(line, "ﬁ", "fi")
		line = strings.ReplaceAll(line, "ﬂ", "fl")

		// OCR output often shouts section titles in full caps.
		if len(line) > 3 && len(line) < 100 && isShouted(line) {
			line = "## " + titleCase(line)
		}

		if line != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") && len(line) > 50 {
			treated = append(treated, line, "")
			continue
		}
		treated = append(treated, line)
	}

	return strings.Join(treated, "\n")
}

// isShouted reports whether the line has letters and all of them are upper
// case.
func isShouted(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// titleCase uppercases the first letter of each word and lowercases the
// rest, enough for promoted section titles.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
