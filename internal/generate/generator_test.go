package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/propos4l/proposal-engine/internal/models"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func validResponse() string {
	var b strings.Builder
	for _, label := range promptOrder {
		fmt.Fprintf(&b, "## %s\n", sectionHeadings[label])
		fmt.Fprintf(&b, "Body for %s.\n\n", label)
	}
	return b.String()
}

func testParams() models.ProposalParams {
	return models.ProposalParams{
		ClientName:   "Acme Corp",
		Industry:     "logistics",
		Requirements: "automate fleet routing",
	}
}

func newTestOrchestrator(gen TextGenerator, opts ...Option) *Orchestrator {
	o := NewOrchestrator(gen, logger.NewTestLogger(), opts...)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func TestGenerateHappyPath(t *testing.T) {
	gen := &fakeGenerator{responses: []string{validResponse()}}
	o := newTestOrchestrator(gen)

	proposal, err := o.Generate(context.Background(), testParams(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if proposal.ClientName != "Acme Corp" {
		t.Fatalf("client name = %q", proposal.ClientName)
	}
	if len(proposal.Sections) != len(promptOrder) {
		t.Fatalf("got %d sections, want %d", len(proposal.Sections), len(promptOrder))
	}
	for i, label := range promptOrder {
		if proposal.Sections[i].Label != label {
			t.Fatalf("section %d label = %s, want %s", i, proposal.Sections[i].Label, label)
		}
		if proposal.Sections[i].Content == "" {
			t.Fatalf("section %s is empty", label)
		}
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{errors.New("upstream 503"), errors.New("timeout"), nil},
		responses: []string{"", "", validResponse()},
	}
	o := newTestOrchestrator(gen)

	if _, err := o.Generate(context.Background(), testParams(), nil); err != nil {
		t.Fatalf("Generate after retries: %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("generator called %d times, want 3", gen.calls)
	}
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	o := newTestOrchestrator(gen)

	_, err := o.Generate(context.Background(), testParams(), nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v, want ErrGenerationFailed", err)
	}
	if gen.calls != 3 {
		t.Fatalf("generator called %d times, want 3", gen.calls)
	}
}

func TestGenerateRetriesUnparseableOutput(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{"no headings here at all", validResponse()},
	}
	o := newTestOrchestrator(gen)

	if _, err := o.Generate(context.Background(), testParams(), nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("generator called %d times, want 2", gen.calls)
	}
}

func TestGenerateRejectsEmptyRequirements(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(gen)

	_, err := o.Generate(context.Background(), models.ProposalParams{ClientName: "Acme"}, nil)
	if !errors.Is(err, ErrEmptyRequirements) {
		t.Fatalf("error = %v, want ErrEmptyRequirements", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator invoked despite invalid params")
	}
}

func TestGenerateStopsOnContextCancel(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("down")}}
	o := NewOrchestrator(gen, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Generate(ctx, testParams(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPromptCarriesParamsAndReferences(t *testing.T) {
	refs := []ReferenceBlock{
		{Label: models.SectionSolution, Content: "We deployed a routing engine.", Distance: 0.1},
		{Label: models.SectionInvestment, Content: "R$ 120.000 over six months.", Distance: 0.4},
	}
	prompt := BuildPrompt(testParams(), refs)

	for _, want := range []string{
		"Acme Corp",
		"logistics",
		"automate fleet routing",
		"We deployed a routing engine.",
		"R$ 120.000 over six months.",
		"## TITLE",
		"## DIFFERENTIALS",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestPromptTruncatesLongReferences(t *testing.T) {
	refs := []ReferenceBlock{
		{Label: models.SectionContext, Content: strings.Repeat("x", maxReferenceChars*2)},
		{Label: models.SectionScope, Content: "should be cut"},
	}
	prompt := BuildPrompt(testParams(), refs)

	if len(prompt) > maxReferenceChars+2000 {
		t.Fatalf("prompt length %d, references not truncated", len(prompt))
	}
	if strings.Contains(prompt, "should be cut") {
		t.Fatal("reference past the budget still included")
	}
}

func TestPromptTruncationKeepsRuneBoundary(t *testing.T) {
	// An ASCII byte shifts the three-byte runes off alignment, so a plain
	// byte cut would land mid-rune.
	refs := []ReferenceBlock{
		{Label: models.SectionContext, Content: "x" + strings.Repeat("→", maxReferenceChars)},
	}
	prompt := BuildPrompt(testParams(), refs)

	if !utf8.ValidString(prompt) {
		t.Fatal("truncation split a rune")
	}
}

func TestParseProposalReordersSections(t *testing.T) {
	raw := "## SOLUTION\nthe fix\n## TITLE\nGrand Plan\n## CONTEXT\nbackground\n" +
		"## PROBLEM\npain\n## SCOPE\nboundaries\n## TIMELINE\nQ3\n" +
		"## INVESTMENT\nR$ 10.000\n## DIFFERENTIALS\nspeed\n"

	proposal, err := ParseProposal(raw, testParams())
	if err != nil {
		t.Fatalf("ParseProposal: %v", err)
	}
	if proposal.Sections[0].Label != models.SectionTitle {
		t.Fatalf("first section = %s, want title", proposal.Sections[0].Label)
	}
	if proposal.Sections[0].Content != "Grand Plan" {
		t.Fatalf("title content = %q", proposal.Sections[0].Content)
	}
	if proposal.Sections[3].Label != models.SectionSolution || proposal.Sections[3].Content != "the fix" {
		t.Fatalf("solution section = %+v", proposal.Sections[3])
	}
}

func TestParseProposalMissingSectionFails(t *testing.T) {
	raw := "## TITLE\nGrand Plan\n"
	if _, err := ParseProposal(raw, testParams()); err == nil {
		t.Fatal("expected error for missing sections")
	}
}

func TestParseHeadingVariants(t *testing.T) {
	cases := map[string]string{
		"## TITLE":        "TITLE",
		"# Timeline":      "TIMELINE",
		"### **SCOPE**":   "SCOPE",
		"##  Investment:": "INVESTMENT",
	}
	for line, want := range cases {
		got, ok := parseHeading(line)
		if !ok || got != want {
			t.Fatalf("parseHeading(%q) = %q, %v; want %q", line, got, ok, want)
		}
	}
	if _, ok := parseHeading("plain text line"); ok {
		t.Fatal("plain text treated as heading")
	}
}
