package sponsr

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Invisible bidi control marks break spacing next to the text they
	// surround once rendered.
	bidiMarks = regexp.MustCompile("[\u200e\u200f\u202a-\u202e\u2066-\u2069]")

	// No-break spaces, including the spacing markers inserted by the DOM
	// pass, become plain spaces.
	hardSpaces = regexp.MustCompile("[\u00a0\u202f]")

	// Nested bold-in-italic artifacts: **_x_** and _**x**_ both mean
	// bold italic.
	boldItalicOuter = regexp.MustCompile(`\*\*\s*_(.+?)_\s*\*\*`)
	boldItalicInner = regexp.MustCompile(`_\s*\*\*(.+?)\*\*\s*_`)

	// Delimiter runs of four or more asterisks collapse to bold italic.
	runawayStars = regexp.MustCompile(`\*{4,}`)

	// Emphasis delimiters belong inside link brackets, not around them.
	linkInnerDelims      = regexp.MustCompile(`\[(\*{2,3})\s*(.+?)\s*(\*{2,3})\]\(([^)]+)\)`)
	tripleAroundLink     = regexp.MustCompile(`\*\*\*\[([^\]]+)\]\(([^)]+)\)\*\*\*`)
	doubleAroundLink     = regexp.MustCompile(`\*\*\[([^\]]+)\]\(([^)]+)\)\*\*`)
	underscoreAroundLink = regexp.MustCompile(`_\[([^\]]+)\]\(([^)]+)\)_`)

	// Conversion pads Unicode quotes with spaces on their inner side.
	openQuoteSpace  = regexp.MustCompile(`([«„“‘])\s+`)
	closeQuoteSpace = regexp.MustCompile(`\s+([»”’])`)

	// A space between a closing delimiter and sentence punctuation.
	delimSpacePunct = regexp.MustCompile(`(\*{1,3}) +([.,;:!?])`)

	// Emphasis and link runs that need word spacing restored around them.
	boldItalicRun = regexp.MustCompile(`\*\*\*.+?\*\*\*`)
	boldRun       = regexp.MustCompile(`\*\*[^*](?:.*?[^*])?\*\*`)
	linkRun       = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)

	// Underscore emphasis does not trigger inside a word under common
	// renderers; such runs are re-rendered with asterisks.
	singleCharUnderscore = regexp.MustCompile(`_([^_\s])_`)
	intrawordLeft        = regexp.MustCompile(`([\p{L}\p{N}])_([^_\n]+)_`)
	intrawordRight       = regexp.MustCompile(`_([^_\n]+)_([\p{L}\p{N}])`)
)

// PostProcess cleans the artifacts the HTML-to-Markdown conversion step
// introduces. Structural correctness is the DOM passes' job; this pass only
// repairs the text-level damage conversion itself causes.
func PostProcess(text string) string {
	text = bidiMarks.ReplaceAllString(text, "")
	text = hardSpaces.ReplaceAllString(text, " ")

	text = boldItalicOuter.ReplaceAllString(text, "***$1***")
	text = boldItalicInner.ReplaceAllString(text, "***$1***")
	text = runawayStars.ReplaceAllString(text, "***")

	text = linkInnerDelims.ReplaceAllString(text, "[$1$2$3]($4)")
	text = tripleAroundLink.ReplaceAllString(text, "[***$1***]($2)")
	text = doubleAroundLink.ReplaceAllString(text, "[**$1**]($2)")
	text = underscoreAroundLink.ReplaceAllString(text, "[_${1}_]($2)")

	text = openQuoteSpace.ReplaceAllString(text, "$1")
	text = closeQuoteSpace.ReplaceAllString(text, "$1")

	text = ensureSpacing(text, boldItalicRun)
	text = ensureSpacing(text, boldRun)
	text = ensureSpacing(text, linkRun)
	text = delimSpacePunct.ReplaceAllString(text, "$1$2")

	text = singleCharUnderscore.ReplaceAllString(text, "*$1*")
	text = intrawordLeft.ReplaceAllString(text, "$1*$2*")
	text = intrawordRight.ReplaceAllString(text, "*$1*$2")

	return text
}

// ensureSpacing inserts a space between each match of pattern and directly
// adjacent alphanumeric text, restoring word boundaries conversion dropped.
func ensureSpacing(text string, pattern *regexp.Regexp) string {
	matches := pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]
		before := text[last:start]
		if start > 0 && endsAlnum(before) {
			before += " "
		}
		b.WriteString(before)

		match := text[start:end]
		if end < len(text) && startsAlnum(text[end:]) {
			match += " "
		}
		b.WriteString(match)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func endsAlnum(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func startsAlnum(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
