package classify

import (
	"strings"

	"github.com/propos4l/proposal-engine/internal/models"
)

// LexiconScorer scores segments against per-label cue vocabularies. A
// heading that literally names a section dominates the score; body cues
// accumulate with diminishing returns.
type LexiconScorer struct {
	cues map[models.SectionLabel][]string
}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{cues: labelCues}
}

const headingScore = 0.95

func (s *LexiconScorer) Score(text string) map[models.SectionLabel]float64 {
	scores := make(map[models.SectionLabel]float64)

	lines := strings.SplitN(text, "\n", 2)
	if label := headingAlias(lines[0]); label != "" {
		scores[label] = headingScore
	}

	lower := strings.ToLower(text)
	words := float64(len(strings.Fields(lower)))
	if words == 0 {
		return scores
	}

	for label, cues := range s.cues {
		var hits float64
		for _, cue := range cues {
			hits += float64(strings.Count(lower, cue))
		}
		if hits == 0 {
			continue
		}
		// Saturating cue score; repeated hits approach but never reach 0.9.
		body := 0.9 * (hits / (hits + 3))
		if body > scores[label] {
			scores[label] = body
		}
	}
	return scores
}

var labelCues = map[models.SectionLabel][]string{
	models.SectionTitle: {
		"proposal for", "commercial proposal", "prepared for", "prepared by",
	},
	models.SectionContext: {
		"background", "currently", "context", "has been", "history",
		"present situation", "introduction",
	},
	models.SectionProblem: {
		"problem", "challenge", "pain point", "difficulty", "bottleneck",
		"struggles", "lacks", "issue",
	},
	models.SectionSolution: {
		"we propose", "solution", "approach", "methodology", "will implement",
		"our team will", "architecture",
	},
	models.SectionScope: {
		"scope", "deliverable", "includes", "out of scope", "phases",
		"work packages", "requirements",
	},
	models.SectionTimeline: {
		"timeline", "week", "month", "schedule", "milestone", "phase",
		"sprint", "duration", "deadline",
	},
	models.SectionInvestment: {
		"investment", "cost", "price", "pricing", "budget", "payment",
		"r$", "usd", "$", "fee", "installment",
	},
	models.SectionDifferentials: {
		"differential", "why us", "advantage", "unique", "expertise",
		"certified", "track record", "years of experience",
	},
}
