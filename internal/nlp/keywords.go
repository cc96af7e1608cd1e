package nlp

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}-]*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "our": {}, "that": {},
	"the": {}, "their": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"were": {}, "will": {}, "with": {}, "your": {}, "not": {}, "can": {},
	"all": {}, "been": {}, "but": {}, "if": {}, "into": {}, "more": {},
	"no": {}, "such": {}, "than": {}, "then": {}, "these": {}, "they": {},
	"which": {}, "would": {}, "you": {},
}

func tokenizeWords(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// keywordAnnotator ranks candidate phrases by a degree/frequency score over
// stopword-delimited word runs, the same graph-free approximation RAKE uses.
type keywordAnnotator struct {
	topN int
}

func (k *keywordAnnotator) Name() string { return "keywords" }

func (k *keywordAnnotator) Annotate(text string, a *Annotation) {
	phrases := candidatePhrases(text)
	if len(phrases) == 0 {
		return
	}

	freq := make(map[string]float64)
	degree := make(map[string]float64)
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		for _, w := range words {
			freq[w]++
			degree[w] += float64(len(words) - 1)
		}
	}

	type ranked struct {
		phrase string
		score  float64
		order  int
	}

	seen := make(map[string]int)
	var scores []ranked
	for i, phrase := range phrases {
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = i

		var score float64
		for _, w := range strings.Fields(phrase) {
			score += (degree[w] + freq[w]) / freq[w]
		}
		scores = append(scores, ranked{phrase: phrase, score: score, order: i})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].order < scores[j].order
	})

	limit := k.topN
	if limit <= 0 || limit > len(scores) {
		limit = len(scores)
	}
	for _, r := range scores[:limit] {
		a.Keywords = append(a.Keywords, r.phrase)
	}
}

// candidatePhrases splits text into maximal runs of non-stopword words.
func candidatePhrases(text string) []string {
	var phrases []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, strings.Join(current, " "))
			current = nil
		}
	}

	for _, tok := range tokenizeWords(strings.ToLower(text)) {
		if _, stop := stopwords[tok]; stop || len(tok) < 2 {
			flush()
			continue
		}
		current = append(current, tok)
		// Cap phrase length the way the original capped ngrams.
		if len(current) == 3 {
			flush()
		}
	}
	flush()
	return phrases
}
