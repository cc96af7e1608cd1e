package nlp

import (
	"regexp"
	"strings"
)

// Entity types populated by the entity annotator.
const (
	EntityOrg     = "ORG"
	EntityMoney   = "MONEY"
	EntityDate    = "DATE"
	EntityPercent = "PERCENT"
	EntityEmail   = "EMAIL"
	EntityTech    = "TECH"
)

var (
	moneyRe   = regexp.MustCompile(`(?:R\$|US\$|\$|€)\s?\d+(?:[.,]\d{3})*(?:[.,]\d{2})?`)
	dateRe    = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	percentRe = regexp.MustCompile(`\b\d+(?:[.,]\d+)?%`)
	emailRe   = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`)
	// Capitalized runs ending in a company suffix.
	orgRe = regexp.MustCompile(`\b(?:[A-Z][\w&]*\s)+(?:Inc|Ltd|LLC|Corp|GmbH|S\.?A\.?|Consulting|Solutions|Technologies|Systems)\b\.?`)
)

// Technical vocabulary recognized as TECH entities.
var techTerms = map[string]struct{}{
	"api": {}, "sdk": {}, "cloud": {}, "infrastructure": {}, "integration": {},
	"implementation": {}, "deployment": {}, "database": {}, "server": {},
	"security": {}, "network": {}, "framework": {}, "platform": {},
	"architecture": {}, "interface": {}, "protocol": {}, "algorithm": {},
	"authentication": {}, "authorization": {}, "encryption": {}, "scaling": {},
	"kubernetes": {}, "devops": {}, "microservices": {},
}

type entityAnnotator struct{}

func (e *entityAnnotator) Name() string { return "entities" }

func (e *entityAnnotator) Annotate(text string, a *Annotation) {
	if strings.TrimSpace(text) == "" {
		return
	}

	add := func(kind, surface string) {
		surface = strings.TrimSpace(surface)
		if surface == "" {
			return
		}
		for _, existing := range a.Entities[kind] {
			if existing == surface {
				return
			}
		}
		a.Entities[kind] = append(a.Entities[kind], surface)
	}

	for _, m := range moneyRe.FindAllString(text, -1) {
		add(EntityMoney, m)
	}
	for _, m := range dateRe.FindAllString(text, -1) {
		add(EntityDate, m)
	}
	for _, m := range percentRe.FindAllString(text, -1) {
		add(EntityPercent, m)
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		add(EntityEmail, m)
	}
	for _, m := range orgRe.FindAllString(text, -1) {
		add(EntityOrg, strings.TrimSuffix(m, "."))
	}

	for _, tok := range tokenizeWords(text) {
		if _, ok := techTerms[strings.ToLower(tok)]; ok {
			add(EntityTech, tok)
		}
	}
}
