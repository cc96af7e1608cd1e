package nlp

// Package nlp runs the enrichment passes over classified blocks. The passes
// are modeled as a fixed ordered list of pure annotators behind one
// interface, so individual models can be swapped without touching the
// pipeline orchestration.

// Annotation accumulates the output of every annotator for one text span.
type Annotation struct {
	Entities   map[string][]string
	Keywords   []string
	Complexity float64
}

// Annotator is one pure text analysis pass. Annotators must tolerate empty
// or very short input by leaving their slots empty rather than failing.
type Annotator interface {
	Name() string
	Annotate(text string, a *Annotation)
}

// Pipeline applies its annotators in order.
type Pipeline struct {
	annotators []Annotator
}

// NewPipeline builds the default enrichment pipeline: named entities,
// ranked keywords, complexity scoring.
func NewPipeline() *Pipeline {
	return &Pipeline{
		annotators: []Annotator{
			&entityAnnotator{},
			&keywordAnnotator{topN: 20},
			&complexityAnnotator{},
		},
	}
}

// NewPipelineWith builds a pipeline from an explicit annotator list.
func NewPipelineWith(annotators ...Annotator) *Pipeline {
	return &Pipeline{annotators: annotators}
}

// Run executes every pass over text and returns the combined annotation.
func (p *Pipeline) Run(text string) Annotation {
	a := Annotation{
		Entities: make(map[string][]string),
		Keywords: []string{},
	}
	for _, ann := range p.annotators {
		ann.Annotate(text, &a)
	}
	return a
}
