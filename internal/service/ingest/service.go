package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	cfg "github.com/propos4l/proposal-engine/config"
	"github.com/propos4l/proposal-engine/internal/classify"
	"github.com/propos4l/proposal-engine/internal/extract"
	"github.com/propos4l/proposal-engine/internal/generate"
	"github.com/propos4l/proposal-engine/internal/models"
	"github.com/propos4l/proposal-engine/internal/nlp"
	"github.com/propos4l/proposal-engine/internal/progress"
	"github.com/propos4l/proposal-engine/internal/vector"
	"github.com/propos4l/proposal-engine/pkg/logger"
	"github.com/propos4l/proposal-engine/pkg/queue"
	"github.com/propos4l/proposal-engine/pkg/storage"
)

var (
	ErrNoFiles       = errors.New("no files in upload")
	ErrNotPDF        = errors.New("file is not a PDF")
	ErrFileTooLarge  = errors.New("file exceeds the upload size limit")
	ErrEmptyQuery    = errors.New("search query is empty")
	ErrJobNotPending = errors.New("job is not waiting in the queue")
)

var pdfMagic = []byte("%PDF-")

// Enqueuer hands ingestion tasks to the worker pool and withdraws tasks a
// worker has not picked up yet.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.IngestTask) error
	CancelTask(ctx context.Context, trackingID string) error
}

// StatusArchive persists final job snapshots beyond the in-memory registry.
type StatusArchive interface {
	SaveFinalStatus(ctx context.Context, snap *progress.Snapshot) error
	GetFinalStatus(ctx context.Context, trackingID string) (*progress.Snapshot, error)
}

// UploadResult is returned per accepted file; the tracking id is live
// before the worker picks the task up.
type UploadResult struct {
	TrackingID string `json:"trackingId"`
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
}

// SearchHit is one semantic search result, resolved against the catalog.
type SearchHit struct {
	OwnerID    string              `json:"ownerId"`
	Kind       models.EntityKind   `json:"kind"`
	DocumentID string              `json:"documentId"`
	Label      models.SectionLabel `json:"label,omitempty"`
	Excerpt    string              `json:"excerpt"`
	Distance   float64             `json:"distance"`
}

// Service is the proposal engine's application boundary: uploads, job
// status, the document catalog, semantic search and generation.
type Service interface {
	Upload(ctx context.Context, files []*multipart.FileHeader, clientName, industry string) ([]UploadResult, error)
	Status(ctx context.Context, trackingID string) (*progress.Snapshot, error)
	CancelJob(ctx context.Context, trackingID string) error
	ActiveJobs(ctx context.Context) []progress.Snapshot
	Document(ctx context.Context, id string) (*models.Document, error)
	DocumentBlocks(ctx context.Context, id string) ([]models.SemanticBlock, error)
	ListDocuments(ctx context.Context) []models.Document
	DeleteDocument(ctx context.Context, id string) error
	Search(ctx context.Context, query string, topK int, kind models.EntityKind) ([]SearchHit, error)
	Generate(ctx context.Context, params models.ProposalParams) (*models.StructuredProposal, error)
	Tracker(trackingID string) (*progress.Tracker, error)
	RunPipeline(ctx context.Context, task *queue.IngestTask) error
}

type service struct {
	log       logger.Logger
	store     *DocumentStore
	files     storage.Storage
	enqueuer  Enqueuer
	archive   StatusArchive
	registry  *progress.Registry
	index     *vector.Index
	extractor extract.Extractor
	classify  *classify.Classifier
	annotate  *nlp.Pipeline
	generator *generate.Orchestrator
	pipeline  *cfg.PipelineConfig
}

// Deps carries the wiring for a Service. Extractor and Generator may be nil
// on the API side, where only upload and read paths run.
type Deps struct {
	Logger    logger.Logger
	Store     *DocumentStore
	Files     storage.Storage
	Enqueuer  Enqueuer
	Archive   StatusArchive
	Registry  *progress.Registry
	Index     *vector.Index
	Extractor extract.Extractor
	Generator *generate.Orchestrator
}

func NewService(d Deps) Service {
	pc := cfg.GetPipelineConfig()
	return &service{
		log:       d.Logger,
		store:     d.Store,
		files:     d.Files,
		enqueuer:  d.Enqueuer,
		archive:   d.Archive,
		registry:  d.Registry,
		index:     d.Index,
		extractor: d.Extractor,
		classify:  classify.NewClassifier(nil, pc.MinConfidence),
		annotate:  nlp.NewPipeline(),
		generator: d.Generator,
		pipeline:  pc,
	}
}

// Upload validates and stores each file, registers a tracker and queues the
// ingestion task. Validation failures reject the whole batch before any
// tracking id is issued.
func (s *service) Upload(ctx context.Context, files []*multipart.FileHeader, clientName, industry string) ([]UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	payloads := make([][]byte, len(files))
	for i, header := range files {
		data, err := s.readAndValidate(header)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", header.Filename, err)
		}
		payloads[i] = data
	}

	results := make([]UploadResult, 0, len(files))
	for i, header := range files {
		docID := uuid.New().String()
		key := docID + ".pdf"

		if _, err := s.files.Store(ctx, bytes.NewReader(payloads[i]), key); err != nil {
			return results, fmt.Errorf("failed to store %s: %w", header.Filename, err)
		}

		doc := &models.Document{
			ID:         docID,
			FileName:   header.Filename,
			ByteLength: int64(len(payloads[i])),
			ClientName: clientName,
			Industry:   industry,
			UploadedAt: time.Now(),
			Status:     models.StatusPending,
		}
		s.store.SaveDocument(doc)

		tracker := s.registry.Create(header.Filename, progress.StandardPlan())
		task := &queue.IngestTask{
			TrackingID: tracker.ID(),
			DocumentID: docID,
			StorageKey: key,
			FileName:   header.Filename,
			ClientName: clientName,
			Industry:   industry,
			EnqueuedAt: time.Now(),
		}
		if err := s.enqueuer.Enqueue(ctx, task); err != nil {
			return results, fmt.Errorf("failed to enqueue %s: %w", header.Filename, err)
		}

		s.log.Info("Queued ingestion job",
			logger.String("trackingId", tracker.ID()),
			logger.String("documentId", docID),
			logger.String("fileName", header.Filename),
		)
		results = append(results, UploadResult{
			TrackingID: tracker.ID(),
			DocumentID: docID,
			FileName:   header.Filename,
		})
	}
	return results, nil
}

func (s *service) readAndValidate(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > s.pipeline.MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return nil, ErrNotPDF
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.pipeline.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.pipeline.MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}
	return data, nil
}

// Status resolves a tracking id, first against live trackers and then
// against the archived final snapshots.
func (s *service) Status(ctx context.Context, trackingID string) (*progress.Snapshot, error) {
	if tracker, err := s.registry.Get(trackingID); err == nil {
		snap := tracker.Snapshot()
		return &snap, nil
	}

	snap, err := s.archive.GetFinalStatus(ctx, trackingID)
	if err != nil {
		if errors.Is(err, queue.ErrStatusNotFound) {
			return nil, progress.ErrJobNotFound
		}
		return nil, err
	}
	return snap, nil
}

// CancelJob withdraws a job that is still waiting in the queue. Jobs a
// worker already picked up run to completion. The tracker finishes with
// every stage skipped, so status readers see a closed job, not a stuck one.
func (s *service) CancelJob(ctx context.Context, trackingID string) error {
	if err := s.enqueuer.CancelTask(ctx, trackingID); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			return ErrJobNotPending
		}
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	if tracker, err := s.registry.Get(trackingID); err == nil {
		tracker.Finish()
		s.archiveFinal(ctx, tracker, s.log)
	}

	s.log.Info("Cancelled ingestion job", logger.String("trackingId", trackingID))
	return nil
}

// Tracker returns the live tracker for a job, for push subscribers.
func (s *service) Tracker(trackingID string) (*progress.Tracker, error) {
	return s.registry.Get(trackingID)
}

func (s *service) ActiveJobs(_ context.Context) []progress.Snapshot {
	return s.registry.Active()
}

func (s *service) Document(_ context.Context, id string) (*models.Document, error) {
	return s.store.Document(id)
}

func (s *service) DocumentBlocks(_ context.Context, id string) ([]models.SemanticBlock, error) {
	return s.store.Blocks(id)
}

func (s *service) ListDocuments(_ context.Context) []models.Document {
	return s.store.List()
}

// DeleteDocument removes a document, its blocks, its vectors and its stored
// file. An index entry left behind would keep surfacing a deleted document
// in search results.
func (s *service) DeleteDocument(ctx context.Context, id string) error {
	blockIDs, err := s.store.Delete(id)
	if err != nil {
		return err
	}

	s.index.RemoveOwner(id)
	for _, blockID := range blockIDs {
		s.index.RemoveOwner(blockID)
	}

	if err := s.files.Delete(ctx, id+".pdf"); err != nil {
		s.log.Warn("Failed to delete stored file",
			logger.String("documentId", id),
			logger.Error(err),
		)
	}

	s.log.Info("Deleted document",
		logger.String("documentId", id),
		logger.Int("blocks", len(blockIDs)),
	)
	return nil
}

// Search embeds the query and returns the nearest documents or blocks,
// resolved to excerpts. kind narrows the result space; empty means both.
func (s *service) Search(_ context.Context, query string, topK int, kind models.EntityKind) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 5
	}

	var matches []vector.Match
	if kind == "" {
		matches = s.index.Search(query, topK)
	} else {
		matches = s.index.SearchKind(query, topK, kind)
	}

	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		hit := SearchHit{
			OwnerID:  m.OwnerID,
			Kind:     m.Kind,
			Distance: m.Distance,
		}
		switch m.Kind {
		case models.KindDocument:
			doc, err := s.store.Document(m.OwnerID)
			if err != nil {
				continue // deleted after indexing; skip
			}
			hit.DocumentID = doc.ID
			hit.Excerpt = excerpt(doc.Content)
		case models.KindBlock:
			block, err := s.store.Block(m.OwnerID)
			if err != nil {
				continue
			}
			hit.DocumentID = block.DocumentID
			hit.Label = block.Label
			hit.Excerpt = excerpt(block.Content)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Generate retrieves the most similar blocks as references and drives the
// generation orchestrator.
func (s *service) Generate(ctx context.Context, params models.ProposalParams) (*models.StructuredProposal, error) {
	if s.generator == nil {
		return nil, errors.New("generation is not configured")
	}

	query := strings.TrimSpace(params.Requirements + " " + params.Scope)
	matches := s.index.SearchKind(query, 8, models.KindBlock)

	refs := make([]generate.ReferenceBlock, 0, len(matches))
	for _, m := range matches {
		block, err := s.store.Block(m.OwnerID)
		if err != nil {
			continue
		}
		refs = append(refs, generate.ReferenceBlock{
			Label:    block.Label,
			Content:  block.Content,
			Distance: m.Distance,
		})
	}

	return s.generator.Generate(ctx, params, refs)
}

const excerptLen = 280

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLen {
		return text
	}
	cut := cutAtRune(text, excerptLen)
	if i := strings.LastIndexByte(cut, ' '); i > excerptLen/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// cutAtRune truncates s to at most n bytes without splitting a rune.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
