package nlp

import (
	"testing"
)

func TestPipelineEmptyInput(t *testing.T) {
	p := NewPipeline()

	for _, text := range []string{"", "   ", "\n\t"} {
		a := p.Run(text)
		if len(a.Keywords) != 0 {
			t.Fatalf("expected no keywords for %q, got %v", text, a.Keywords)
		}
		if len(a.Entities) != 0 {
			t.Fatalf("expected no entities for %q, got %v", text, a.Entities)
		}
		if a.Complexity != 0 {
			t.Fatalf("expected zero complexity for %q, got %f", text, a.Complexity)
		}
	}
}

func TestEntityExtraction(t *testing.T) {
	p := NewPipeline()
	text := "Acme Solutions will deliver the cloud platform by 12/05/2025 for R$ 150.000,00, a 20% saving. Contact ops@acme.com."

	a := p.Run(text)

	if len(a.Entities[EntityMoney]) == 0 {
		t.Fatal("expected a MONEY entity")
	}
	if len(a.Entities[EntityDate]) == 0 || a.Entities[EntityDate][0] != "12/05/2025" {
		t.Fatalf("expected DATE 12/05/2025, got %v", a.Entities[EntityDate])
	}
	if len(a.Entities[EntityPercent]) == 0 || a.Entities[EntityPercent][0] != "20%" {
		t.Fatalf("expected PERCENT 20%%, got %v", a.Entities[EntityPercent])
	}
	if len(a.Entities[EntityEmail]) == 0 {
		t.Fatal("expected an EMAIL entity")
	}
	if len(a.Entities[EntityOrg]) == 0 {
		t.Fatalf("expected an ORG entity, got %v", a.Entities)
	}
	if len(a.Entities[EntityTech]) == 0 {
		t.Fatal("expected a TECH entity for 'cloud'")
	}
}

func TestEntityDeduplication(t *testing.T) {
	p := NewPipeline()
	a := p.Run("Paid 10% upfront and 10% on delivery.")

	if got := len(a.Entities[EntityPercent]); got != 1 {
		t.Fatalf("expected deduplicated PERCENT entity, got %d", got)
	}
}

func TestKeywordRanking(t *testing.T) {
	p := NewPipeline()
	text := "The cloud migration project covers cloud migration planning, cloud migration execution and a final report."

	a := p.Run(text)
	if len(a.Keywords) == 0 {
		t.Fatal("expected keywords")
	}
	if a.Keywords[0] != "cloud migration" && a.Keywords[0] != "cloud migration project" {
		t.Fatalf("expected the repeated phrase ranked first, got %q", a.Keywords[0])
	}
}

func TestComplexityBounds(t *testing.T) {
	p := NewPipeline()

	simple := p.Run("We do work. It is good. You pay us.")
	dense := p.Run("The microservices architecture necessitates orchestrated containerization infrastructure, encompassing authentication, authorization, encryption and observability integration throughout the deployment topology.")

	if simple.Complexity < 0 || simple.Complexity > 1 || dense.Complexity < 0 || dense.Complexity > 1 {
		t.Fatalf("complexity out of [0,1]: %f, %f", simple.Complexity, dense.Complexity)
	}
	if dense.Complexity <= simple.Complexity {
		t.Fatalf("expected dense text to score higher: %f vs %f", dense.Complexity, simple.Complexity)
	}
}

func TestPipelineOrderIsStable(t *testing.T) {
	p := NewPipeline()
	text := "Platform integration timeline with deployment milestones."

	first := p.Run(text)
	second := p.Run(text)

	if len(first.Keywords) != len(second.Keywords) {
		t.Fatal("keyword counts differ across runs")
	}
	for i := range first.Keywords {
		if first.Keywords[i] != second.Keywords[i] {
			t.Fatalf("keyword order unstable at %d: %q vs %q", i, first.Keywords[i], second.Keywords[i])
		}
	}
}
