package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/propos4l/proposal-engine/internal/classify"
	"github.com/propos4l/proposal-engine/internal/extract"
	"github.com/propos4l/proposal-engine/internal/models"
	"github.com/propos4l/proposal-engine/internal/progress"
	"github.com/propos4l/proposal-engine/pkg/logger"
	"github.com/propos4l/proposal-engine/pkg/queue"
)

// RunPipeline executes one ingestion job end to end, reporting every stage
// to the job's tracker. Stage failures are terminal for the job and are
// recorded in its status rather than bubbled to asynq, which would re-run
// completed stages.
func (s *service) RunPipeline(ctx context.Context, task *queue.IngestTask) error {
	tracker, err := s.registry.Get(task.TrackingID)
	if err != nil {
		// Evicted or unknown; without a tracker there is no job to report on.
		return fmt.Errorf("tracking id %s: %w", task.TrackingID, err)
	}

	log := s.log.With(
		logger.String("trackingId", task.TrackingID),
		logger.String("documentId", task.DocumentID),
		logger.String("fileName", task.FileName),
	)
	log.Info("Starting ingestion job")

	if err := s.store.SetStatus(task.DocumentID, models.StatusProcessing, ""); err != nil {
		return err
	}

	fail := func(stageErr error) error {
		log.Error("Ingestion job failed", logger.Error(stageErr))
		tracker.FailCurrent(stageErr, "")
		tracker.Finish()
		if err := s.store.SetStatus(task.DocumentID, models.StatusFailed, stageErr.Error()); err != nil {
			log.Error("Failed to record document failure", logger.Error(err))
		}
		s.archiveFinal(ctx, tracker, log)
		return nil
	}

	// Text extraction.
	tracker.StartNext("Reading the PDF")
	pdfBytes, err := s.readStored(ctx, task.StorageKey)
	if err != nil {
		return fail(err)
	}
	res, err := s.extractText(ctx, pdfBytes, tracker)
	if err != nil {
		return fail(err)
	}
	tracker.CompleteCurrent(fmt.Sprintf("Extracted %d pages", len(res.PageTexts)))

	// Section classification.
	tracker.StartNext("Classifying sections")
	results := s.classify.Classify(res.FullText, func(done, total int) {
		if total > 0 {
			tracker.SetFraction(float64(done)/float64(total), "")
		}
	})
	blocks := buildBlocks(task.DocumentID, results)
	tracker.CompleteCurrent(fmt.Sprintf("Classified %d sections", len(blocks)))

	// Entity and keyword enrichment.
	tracker.StartNext("Extracting key information")
	for i := range blocks {
		ann := s.annotate.Run(blocks[i].Content)
		blocks[i].Entities = ann.Entities
		blocks[i].Keywords = ann.Keywords
		blocks[i].Complexity = ann.Complexity
		tracker.SetFraction(float64(i+1)/float64(len(blocks)), "")
	}
	tracker.CompleteCurrent("")

	// Vector indexing.
	tracker.StartNext("Indexing for semantic search")
	if err := s.index.Upsert(task.DocumentID, models.KindDocument, res.FullText); err != nil {
		return fail(err)
	}
	for i := range blocks {
		if err := s.index.Upsert(blocks[i].ID, models.KindBlock, blocks[i].Content); err != nil {
			return fail(err)
		}
		tracker.SetFraction(float64(i+1)/float64(len(blocks)+1), "")
	}
	tracker.CompleteCurrent(fmt.Sprintf("Indexed %d vectors", len(blocks)+1))

	// Storage.
	tracker.StartNext("Saving document")
	doc, err := s.store.Document(task.DocumentID)
	if err != nil {
		return fail(err)
	}
	doc.Content = res.FullText
	doc.PageOCR = res.PageUsedOCR
	doc.Status = models.StatusProcessing
	s.store.SaveDocument(doc)
	s.store.SaveBlocks(task.DocumentID, blocks)
	tracker.CompleteCurrent("")

	// Finalization.
	tracker.StartNext("Publishing")
	if err := s.store.SetStatus(task.DocumentID, models.StatusCompleted, ""); err != nil {
		return fail(err)
	}
	tracker.CompleteCurrent("")
	tracker.Finish()
	s.archiveFinal(ctx, tracker, log)

	log.Info("Ingestion job completed",
		logger.Int("blocks", len(blocks)),
		logger.Int("pages", len(res.PageTexts)),
	)
	return nil
}

func (s *service) readStored(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.files.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

func (s *service) extractText(ctx context.Context, pdfBytes []byte, tracker *progress.Tracker) (extract.Result, error) {
	type progressExtractor interface {
		ExtractProgress(ctx context.Context, pdfBytes []byte, onProgress extract.ProgressFunc) (extract.Result, error)
	}
	if pe, ok := s.extractor.(progressExtractor); ok {
		return pe.ExtractProgress(ctx, pdfBytes, func(done, total int) {
			if total > 0 {
				tracker.SetFraction(float64(done)/float64(total), "")
			}
		})
	}
	return s.extractor.Extract(ctx, pdfBytes)
}

// buildBlocks turns classifier output into catalog blocks. Segment.Text
// already carries the heading line, so the content is stored as-is.
func buildBlocks(documentID string, results []classify.Result) []models.SemanticBlock {
	blocks := make([]models.SemanticBlock, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, models.SemanticBlock{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Position:   i,
			Label:      r.Label,
			Content:    r.Segment.Text,
			Confidence: r.Confidence,
			Uncertain:  r.Uncertain,
		})
	}
	return blocks
}

func (s *service) archiveFinal(ctx context.Context, tracker *progress.Tracker, log logger.Logger) {
	snap := tracker.Snapshot()
	if err := s.archive.SaveFinalStatus(ctx, &snap); err != nil {
		log.Error("Failed to archive final job status", logger.Error(err))
	}
}
