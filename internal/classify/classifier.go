package classify

import (
	"strings"

	"github.com/propos4l/proposal-engine/internal/models"
)

// Scorer rates a text span against the fixed label set. It is treated as a
// pure function so the underlying model can be swapped without touching the
// classifier orchestration.
type Scorer interface {
	Score(text string) map[models.SectionLabel]float64
}

// Classifier assigns a semantic label and confidence to each segment.
type Classifier struct {
	scorer        Scorer
	minConfidence float64
	tieBreak      *TieBreakPolicy
}

// Result is one classified segment.
type Result struct {
	Segment    Segment
	Label      models.SectionLabel
	Confidence float64
	Uncertain  bool
}

// ProgressFunc receives classification progress as (processed, total).
type ProgressFunc func(done, total int)

func NewClassifier(scorer Scorer, minConfidence float64) *Classifier {
	if scorer == nil {
		scorer = NewLexiconScorer()
	}
	return &Classifier{
		scorer:        scorer,
		minConfidence: minConfidence,
		tieBreak:      DefaultTieBreakPolicy(),
	}
}

// Classify splits text into segments and labels each one. Segments scoring
// below the confidence floor get the generic Other label; nothing is
// dropped. onProgress may be nil.
func (c *Classifier) Classify(text string, onProgress ProgressFunc) []Result {
	segments := SplitSegments(text)
	results := make([]Result, 0, len(segments))

	for i, seg := range segments {
		label, confidence := c.classifySegment(seg)
		results = append(results, Result{
			Segment:    seg,
			Label:      label,
			Confidence: confidence,
			Uncertain:  confidence < c.minConfidence,
		})
		if onProgress != nil {
			onProgress(i+1, len(segments))
		}
	}
	return results
}

func (c *Classifier) classifySegment(seg Segment) (models.SectionLabel, float64) {
	scores := c.scorer.Score(seg.Text)

	best, second := topTwo(scores)
	if best.label == "" || best.score <= 0 {
		return models.SectionOther, 0
	}

	label := best.label
	if second.label != "" && c.tieBreak.WithinEpsilon(best.score, second.score) {
		label = c.tieBreak.Prefer(best.label, second.label, seg.RelPos)
	}

	confidence := best.score
	if confidence > 1 {
		confidence = 1
	}

	if confidence < c.minConfidence && !headingMatches(seg, label) {
		// Below the floor the label is a guess; keep the block, generify it.
		return models.SectionOther, confidence
	}
	return label, confidence
}

type labelScore struct {
	label models.SectionLabel
	score float64
}

func topTwo(scores map[models.SectionLabel]float64) (best, second labelScore) {
	// Deterministic scan order via the canonical label list.
	for _, label := range models.SectionLabels {
		s, ok := scores[label]
		if !ok {
			continue
		}
		switch {
		case s > best.score:
			second = best
			best = labelScore{label: label, score: s}
		case s > second.score:
			second = labelScore{label: label, score: s}
		}
	}
	return best, second
}

func headingMatches(seg Segment, label models.SectionLabel) bool {
	if seg.Heading == "" {
		return false
	}
	return headingAlias(seg.Heading) == label
}

func headingAlias(heading string) models.SectionLabel {
	h := strings.ToLower(strings.TrimRight(strings.TrimSpace(heading), ":"))
	h = strings.TrimLeft(h, "0123456789.) ")
	if label, ok := headingAliases[h]; ok {
		return label
	}
	return ""
}

// headingAliases maps common literal section headers onto the label set.
var headingAliases = map[string]models.SectionLabel{
	"title":                 models.SectionTitle,
	"introduction":          models.SectionContext,
	"context":               models.SectionContext,
	"background":            models.SectionContext,
	"about":                 models.SectionContext,
	"problem":               models.SectionProblem,
	"challenge":             models.SectionProblem,
	"challenges":            models.SectionProblem,
	"needs":                 models.SectionProblem,
	"solution":              models.SectionSolution,
	"proposed solution":     models.SectionSolution,
	"our approach":          models.SectionSolution,
	"approach":              models.SectionSolution,
	"methodology":           models.SectionSolution,
	"scope":                 models.SectionScope,
	"project scope":         models.SectionScope,
	"deliverables":          models.SectionScope,
	"scope of work":         models.SectionScope,
	"timeline":              models.SectionTimeline,
	"schedule":              models.SectionTimeline,
	"project timeline":      models.SectionTimeline,
	"milestones":            models.SectionTimeline,
	"investment":            models.SectionInvestment,
	"pricing":               models.SectionInvestment,
	"budget":                models.SectionInvestment,
	"costs":                 models.SectionInvestment,
	"commercial proposal":   models.SectionTitle,
	"differentials":         models.SectionDifferentials,
	"why us":                models.SectionDifferentials,
	"our differentials":     models.SectionDifferentials,
	"competitive advantage": models.SectionDifferentials,
}
