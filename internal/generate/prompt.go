package generate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/propos4l/proposal-engine/internal/models"
)

// maxReferenceChars caps how much retrieved text lands in a prompt so a
// handful of long documents cannot crowd out the instructions.
const maxReferenceChars = 6000

// sectionHeadings maps each label to the heading the generator is asked to
// emit, and ParseProposal to recognize.
var sectionHeadings = map[models.SectionLabel]string{
	models.SectionTitle:         "TITLE",
	models.SectionContext:       "CONTEXT",
	models.SectionProblem:       "PROBLEM",
	models.SectionSolution:      "SOLUTION",
	models.SectionScope:         "SCOPE",
	models.SectionTimeline:      "TIMELINE",
	models.SectionInvestment:    "INVESTMENT",
	models.SectionDifferentials: "DIFFERENTIALS",
}

// promptOrder lists the sections a generated proposal must contain, in
// document order. SectionOther is never requested.
var promptOrder = []models.SectionLabel{
	models.SectionTitle,
	models.SectionContext,
	models.SectionProblem,
	models.SectionSolution,
	models.SectionScope,
	models.SectionTimeline,
	models.SectionInvestment,
	models.SectionDifferentials,
}

// BuildPrompt assembles the generation prompt from user parameters and
// retrieved reference blocks. References arrive ordered by similarity and
// are truncated, not re-ranked.
func BuildPrompt(params models.ProposalParams, refs []ReferenceBlock) string {
	var b strings.Builder

	b.WriteString("You are writing a commercial business proposal.\n\n")
	fmt.Fprintf(&b, "Client: %s\n", params.ClientName)
	if params.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", params.Industry)
	}
	fmt.Fprintf(&b, "Requirements: %s\n", params.Requirements)
	if params.Scope != "" {
		fmt.Fprintf(&b, "Requested scope: %s\n", params.Scope)
	}

	if len(refs) > 0 {
		b.WriteString("\nExcerpts from similar past proposals, most relevant first:\n")
		used := 0
		for i, ref := range refs {
			content := strings.TrimSpace(ref.Content)
			if content == "" {
				continue
			}
			if used+len(content) > maxReferenceChars {
				remaining := maxReferenceChars - used
				if remaining < 200 {
					break
				}
				content = cutAtRune(content, remaining)
			}
			fmt.Fprintf(&b, "\n[Reference %d, section %s]\n%s\n", i+1, ref.Label, content)
			used += len(content)
		}
	}

	b.WriteString("\nWrite the proposal as plain text with exactly these section headings, each on its own line:\n")
	for _, label := range promptOrder {
		fmt.Fprintf(&b, "## %s\n", sectionHeadings[label])
	}
	b.WriteString("\nEvery heading must appear once, in this order. Put the section text under its heading.\n")

	return b.String()
}

// cutAtRune truncates s to at most n bytes without splitting a rune.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
