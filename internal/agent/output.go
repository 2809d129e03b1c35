package agent

import (
	"regexp"
	"strings"
)

// emDashRe matches an em dash together with any surrounding spaces, so it
// can be replaced with a comma-and-space the way a person would punctuate
// the same pause.
var emDashRe = regexp.MustCompile(`\s*—\s*`)

// openingHedgeRe strips a leading stock hedge phrase ("Certainly!",
// "Absolutely!", "Great question!") that adds no content.
var openingHedgeRe = regexp.MustCompile(`(?i)^\s*(certainly|absolutely|of course|great question|sure thing)[!.,]?\s+`)

// closingFillerRe strips a trailing stock closer ("Hope this helps!", "Let
// me know if you have questions!") that reads as boilerplate rather than a
// real offer to follow up.
var closingFillerRe = regexp.MustCompile(`(?i)\s*(hope (this|that) helps!?|let me know if you have any (other |more )?questions!?|feel free to (reach out|ask)( if you need anything)?!?)\s*$`)

// transitionalFillerRe strips mid-paragraph connective tissue that padds
// sentence openings without adding information.
var transitionalFillerRe = regexp.MustCompile(`(?im)^(in conclusion|in summary|to summarize|it'?s worth noting that|it is important to note that),?\s+`)

// ProcessOutput runs the model's raw reply text through the "de-AI" cleanup
// pass before it reaches chat: em dashes become ordinary punctuation,
// opening hedges and closing filler phrases are dropped, and mid-paragraph
// transitional filler is trimmed.
func ProcessOutput(text string) string {
	out := emDashRe.ReplaceAllString(text, ", ")
	out = openingHedgeRe.ReplaceAllString(out, "")
	out = closingFillerRe.ReplaceAllString(out, "")
	out = transitionalFillerRe.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	return FormatBlocks(out)
}

var (
	headerLineRe  = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	dividerLineRe = regexp.MustCompile(`(?m)^\s*(-{3,}|\*{3,})\s*$`)
)

// FormatBlocks converts markdown-style structure signals (###-style
// headers, --- dividers) into the section/divider syntax the chat-native
// renderer expects, leaving plain paragraphs untouched.
func FormatBlocks(text string) string {
	out := headerLineRe.ReplaceAllString(text, "*$1*")
	out = dividerLineRe.ReplaceAllString(out, "\n---\n")
	return out
}
