package classify

import (
	"math"

	"github.com/propos4l/proposal-engine/internal/models"
)

// TieBreakPolicy resolves near-equal label scores by expected ordinal
// position: a title belongs near the start of a document, investment near
// the end. Kept as an explicit table so the policy is testable on its own.
type TieBreakPolicy struct {
	Epsilon  float64
	Expected map[models.SectionLabel]float64
}

func DefaultTieBreakPolicy() *TieBreakPolicy {
	return &TieBreakPolicy{
		Epsilon: 0.05,
		Expected: map[models.SectionLabel]float64{
			models.SectionTitle:         0.00,
			models.SectionContext:       0.15,
			models.SectionProblem:       0.30,
			models.SectionSolution:      0.45,
			models.SectionScope:         0.55,
			models.SectionTimeline:      0.70,
			models.SectionInvestment:    0.85,
			models.SectionDifferentials: 0.95,
			models.SectionOther:         0.50,
		},
	}
}

// WithinEpsilon reports whether two scores are close enough to tie.
func (p *TieBreakPolicy) WithinEpsilon(a, b float64) bool {
	return math.Abs(a-b) < p.Epsilon
}

// Prefer returns whichever label's expected position better matches the
// segment's relative position in the document.
func (p *TieBreakPolicy) Prefer(a, b models.SectionLabel, relPos float64) models.SectionLabel {
	da := math.Abs(p.Expected[a] - relPos)
	db := math.Abs(p.Expected[b] - relPos)
	if db < da {
		return b
	}
	return a
}
