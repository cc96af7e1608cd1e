package classify

import (
	"regexp"
	"strings"
)

// Segment is one candidate span produced by the structural splitter.
type Segment struct {
	Heading  string  // heading line, if the segment started at one
	Text     string  // full segment text including the heading
	Position int     // ordinal position in the document
	RelPos   float64 // relative position in [0,1]
}

var (
	numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	bulletRe   = regexp.MustCompile(`^\s*[•\-*]\s+\S`)
)

// SplitSegments performs heuristic segmentation on extracted text, using
// blank-line runs and heading-shaped lines as boundaries. This is a
// best-effort structural split, not a parse; it never drops text.
func SplitSegments(text string) []Segment {
	lines := strings.Split(text, "\n")

	type rawSegment struct {
		heading string
		lines   []string
	}

	var raw []rawSegment
	current := rawSegment{}
	blankRun := 0

	flush := func() {
		if strings.TrimSpace(strings.Join(current.lines, "\n")) != "" {
			raw = append(raw, current)
		}
		current = rawSegment{}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blankRun++
			// A run of blank lines ends the current segment.
			if blankRun >= 2 {
				flush()
			}
			continue
		}

		if isHeading(trimmed) && len(current.lines) > 0 {
			flush()
			current.heading = trimmed
		} else if len(current.lines) == 0 && isHeading(trimmed) {
			current.heading = trimmed
		}
		blankRun = 0
		current.lines = append(current.lines, trimmed)
	}
	flush()

	segments := make([]Segment, 0, len(raw))
	denom := float64(len(raw) - 1)
	if denom == 0 {
		denom = 1
	}
	for i, r := range raw {
		segments = append(segments, Segment{
			Heading:  r.heading,
			Text:     strings.Join(r.lines, "\n"),
			Position: i,
			RelPos:   float64(i) / denom,
		})
	}
	return segments
}

// isHeading reports whether a line looks like a section heading: short,
// not sentence-terminated, and either numbered, title-cased or all caps.
func isHeading(line string) bool {
	if len(line) > 80 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return false
	}
	if bulletRe.MatchString(line) {
		return false
	}
	if numberedRe.MatchString(line) {
		return true
	}
	if strings.HasSuffix(line, ":") {
		return true
	}

	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	if line == strings.ToUpper(line) && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return true
	}

	// Title Case: every significant word capitalized.
	for _, w := range words {
		r := []rune(w)
		if len(r) > 3 && !strings.ContainsAny(string(r[0]), "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
			return false
		}
	}
	return true
}
