package models

import (
	"time"
)

// ProcessingStatus document lifecycle status
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// SectionLabel is one of the fixed semantic section labels a block can carry.
type SectionLabel string

const (
	SectionTitle         SectionLabel = "title"
	SectionContext       SectionLabel = "context"
	SectionProblem       SectionLabel = "problem"
	SectionSolution      SectionLabel = "solution"
	SectionScope         SectionLabel = "scope"
	SectionTimeline      SectionLabel = "timeline"
	SectionInvestment    SectionLabel = "investment"
	SectionDifferentials SectionLabel = "differentials"
	SectionOther         SectionLabel = "other"
)

// SectionLabels lists every assignable label in expected document order.
// The ordinal position of a label here feeds the classifier tie-break policy.
var SectionLabels = []SectionLabel{
	SectionTitle,
	SectionContext,
	SectionProblem,
	SectionSolution,
	SectionScope,
	SectionTimeline,
	SectionInvestment,
	SectionDifferentials,
	SectionOther,
}

// Document is one ingested PDF proposal. Created on upload, mutated only by
// the pipeline, immutable once completed or failed.
type Document struct {
	ID         string           `json:"id"`
	FileName   string           `json:"fileName"`
	ByteLength int64            `json:"byteLength"`
	Content    string           `json:"content"`
	PageOCR    []bool           `json:"pageOcr"`
	ClientName string           `json:"clientName,omitempty"`
	Industry   string           `json:"industry,omitempty"`
	UploadedAt time.Time        `json:"uploadedAt"`
	Status     ProcessingStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
}

// SemanticBlock is a classified span of text within a Document.
// Blocks whose confidence falls below the configured floor are marked
// Uncertain and must be surfaced, never dropped.
type SemanticBlock struct {
	ID         string              `json:"id"`
	DocumentID string              `json:"documentId"`
	Position   int                 `json:"position"`
	Label      SectionLabel        `json:"label"`
	Content    string              `json:"content"`
	Confidence float64             `json:"confidence"`
	Uncertain  bool                `json:"uncertain"`
	Entities   map[string][]string `json:"entities,omitempty"`
	Keywords   []string            `json:"keywords,omitempty"`
	Complexity float64             `json:"complexity"`
}

// EntityKind distinguishes the owner of an embedding record.
type EntityKind string

const (
	KindDocument EntityKind = "document"
	KindBlock    EntityKind = "block"
)

// EmbeddingRecord ties a fixed-dimension vector to a Document or SemanticBlock.
type EmbeddingRecord struct {
	OwnerID    string     `json:"ownerId"`
	Kind       EntityKind `json:"kind"`
	Vector     []float32  `json:"vector"`
	InsertedAt time.Time  `json:"insertedAt"`
}

// ProposalParams are the user-supplied inputs to generation.
type ProposalParams struct {
	ClientName   string `json:"clientName"`
	Industry     string `json:"industry"`
	Requirements string `json:"requirements"`
	Scope        string `json:"scope,omitempty"`
}

// ProposalSection is one named section of a generated proposal.
type ProposalSection struct {
	Label   SectionLabel `json:"label"`
	Content string       `json:"content"`
}

// StructuredProposal is the ordered-section document handed to the exporter.
type StructuredProposal struct {
	ClientName  string            `json:"clientName"`
	Industry    string            `json:"industry"`
	Sections    []ProposalSection `json:"sections"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
