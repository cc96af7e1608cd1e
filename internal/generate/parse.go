package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/propos4l/proposal-engine/internal/models"
)

// ParseProposal splits raw generator output into the ordered section list.
// Sections come back in promptOrder regardless of the order the generator
// emitted them; a missing or empty required section is a parse error so the
// orchestrator can retry.
func ParseProposal(raw string, params models.ProposalParams) (*models.StructuredProposal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty generator response")
	}

	headingToLabel := make(map[string]models.SectionLabel, len(sectionHeadings))
	for label, heading := range sectionHeadings {
		headingToLabel[heading] = label
	}

	found := make(map[models.SectionLabel]string)
	var current models.SectionLabel
	var buf strings.Builder

	flush := func() {
		if current == "" {
			return
		}
		text := strings.TrimSpace(buf.String())
		if text != "" {
			found[current] = text
		}
		buf.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		if heading, ok := parseHeading(line); ok {
			if label, known := headingToLabel[heading]; known {
				flush()
				current = label
				continue
			}
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	flush()

	sections := make([]models.ProposalSection, 0, len(promptOrder))
	for _, label := range promptOrder {
		text, ok := found[label]
		if !ok {
			return nil, fmt.Errorf("generator response missing section %s", label)
		}
		sections = append(sections, models.ProposalSection{Label: label, Content: text})
	}

	return &models.StructuredProposal{
		ClientName:  params.ClientName,
		Industry:    params.Industry,
		Sections:    sections,
		GeneratedAt: time.Now(),
	}, nil
}

// parseHeading recognizes "## HEADING" lines, tolerating markdown variants
// the generator tends to produce.
func parseHeading(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*_: ")
	if line == "" {
		return "", false
	}
	return strings.ToUpper(line), true
}
