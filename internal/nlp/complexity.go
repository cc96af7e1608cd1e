package nlp

import (
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[.!?]+\s+`)

// complexityAnnotator scores text complexity in [0,1] from sentence length,
// vocabulary rarity and technical term density.
type complexityAnnotator struct{}

func (c *complexityAnnotator) Name() string { return "complexity" }

func (c *complexityAnnotator) Annotate(text string, a *Annotation) {
	words := tokenizeWords(text)
	if len(words) == 0 {
		a.Complexity = 0
		return
	}

	sentences := sentenceRe.Split(strings.TrimSpace(text), -1)
	sentenceCount := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	avgSentenceLen := float64(len(words)) / float64(sentenceCount)

	unique := make(map[string]struct{}, len(words))
	var longWords, technical int
	for _, w := range words {
		lw := strings.ToLower(w)
		unique[lw] = struct{}{}
		if len(w) > 7 {
			longWords++
		}
		if _, ok := techTerms[lw]; ok {
			technical++
		}
	}

	vocabRarity := float64(len(unique)) / float64(len(words))
	longRatio := float64(longWords) / float64(len(words))
	techDensity := float64(technical) / float64(len(words))

	// Weighted blend, normalized so 25-word sentences saturate the first term.
	score := 0.4*clamp01(avgSentenceLen/25) +
		0.3*clamp01(vocabRarity*longRatio*4) +
		0.3*clamp01(techDensity*10)

	a.Complexity = clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
