// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// DefaultTitle is used when no heading can be found in the markdown.
const DefaultTitle = "Academic Paper"

// missingFigureNote replaces image refs whose files are not available.
const missingFigureNote = "*[Figure/Image available in original PDF]*"

var (
	// localImagePattern matches image refs pointing at local files, e.g.
	// ![](_page_3_Figure_1.png) or ![scan](page_1_img_2.jpeg).
	localImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+\.(?:png|jpe?g|gif))\)`)

	// imageTokenPattern matches bare placeholder tokens some converters
	// emit instead of refs, e.g. [Image #4].
	imageTokenPattern = regexp.MustCompile(`\[Image #?\d+\]`)
)

// Clean normalizes converter output for display. Local image refs are
// renumbered as figures and rewritten through imageURL; refs to images that
// do not exist (imageURL returns "") become a placeholder note, as do bare
// [Image #N] tokens. A leading H1 that merely repeats the source filename
// is dropped. Remote and data-URI refs pass through untouched.
func Clean(markdown, filename string, imageURL func(name string) string) string {
	if imageURL == nil {
		imageURL = func(string) string { return "" }
	}

	figure := 0
	out := localImagePattern.ReplaceAllStringFunc(markdown, func(m string) string {
		ref := localImagePattern.FindStringSubmatch(m)[1]
		if strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
			return m
		}
		figure++
		if url := imageURL(path.Base(ref)); url != "" {
			return fmt.Sprintf("![Figure %d](%s)", figure, url)
		}
		return missingFigureNote
	})

	out = imageTokenPattern.ReplaceAllString(out, missingFigureNote)
	out = dropDuplicateTitle(out, filename)
	return strings.TrimSpace(out)
}

// ExtractTitle returns the text of the first H1 heading, or DefaultTitle
// when the markdown has none.
func ExtractTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if t, ok := strings.CutPrefix(line, "# "); ok {
			t = strings.Trim(strings.TrimSpace(t), "*_`")
			if t != "" {
				return t
			}
		}
	}
	return DefaultTitle
}

// dropDuplicateTitle removes a leading H1 that repeats the source filename.
// Converters often emit the file stem as a heading ahead of the real title.
func dropDuplicateTitle(markdown, filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	trimmed := strings.TrimLeft(markdown, "\n \t")
	first, rest, found := strings.Cut(trimmed, "\n")
	if !found {
		first = trimmed
		rest = ""
	}
	title, ok := strings.CutPrefix(first, "# ")
	if !ok {
		return markdown
	}
	if normalizeTitle(title) != normalizeTitle(stem) {
		return markdown
	}
	return strings.TrimLeft(rest, "\n")
}

// normalizeTitle lowercases and strips everything but letters and digits so
// "attention_is_all_you_need" matches "Attention Is All You Need".
func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
