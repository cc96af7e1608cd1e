package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/propos4l/proposal-engine/pkg/logger"
)

// ErrNoText is returned when no page of a document yields usable text,
// neither from the text layer nor from OCR. This is fatal for the job.
var ErrNoText = errors.New("no extractable text in any page")

// Result is the output of text extraction for one document.
type Result struct {
	FullText    string
	PageTexts   []string
	PageUsedOCR []bool
}

// Extractor converts raw PDF bytes into plain text with per-page OCR
// fallback metadata.
type Extractor interface {
	Extract(ctx context.Context, pdfBytes []byte) (Result, error)
}

// TextLayerReader pulls the embedded text layer out of a PDF, one string per
// page. Pages the reader cannot decode come back empty, not as an error.
type TextLayerReader interface {
	PageTexts(pdfBytes []byte) ([]string, error)
}

// ProgressFunc receives per-page extraction progress.
type ProgressFunc func(done, total int)

// Config carries the extractor tunables.
type Config struct {
	// MinCharsPerPage routes a page to OCR when its text layer yields fewer
	// non-whitespace characters than this.
	MinCharsPerPage int
	// MaxParallel bounds concurrent page processing.
	MaxParallel int
}

// PDFExtractor extracts the text layer per page and falls back to OCR for
// pages that look scanned. Individual page failures are non-fatal; the whole
// extraction fails only when no page produced text at all.
type PDFExtractor struct {
	layer  TextLayerReader
	raster Rasterizer
	ocr    Engine
	cfg    Config
	logger logger.Logger
}

func NewPDFExtractor(layer TextLayerReader, raster Rasterizer, ocr Engine, cfg Config, log logger.Logger) *PDFExtractor {
	if cfg.MinCharsPerPage <= 0 {
		cfg.MinCharsPerPage = 32
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	return &PDFExtractor{
		layer:  layer,
		raster: raster,
		ocr:    ocr,
		cfg:    cfg,
		logger: log,
	}
}

func (e *PDFExtractor) Extract(ctx context.Context, pdfBytes []byte) (Result, error) {
	return e.ExtractProgress(ctx, pdfBytes, nil)
}

// ExtractProgress is Extract with a per-page progress callback (may be nil).
func (e *PDFExtractor) ExtractProgress(ctx context.Context, pdfBytes []byte, onProgress ProgressFunc) (Result, error) {
	pageTexts, err := e.layer.PageTexts(pdfBytes)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read pdf: %w", err)
	}
	if len(pageTexts) == 0 {
		return Result{}, ErrNoText
	}

	total := len(pageTexts)
	texts := make([]string, total)
	usedOCR := make([]bool, total)

	var mu sync.Mutex
	done := 0
	report := func() {
		if onProgress == nil {
			return
		}
		// The callback runs under mu so page counts arrive in order;
		// downstream consumers treat a backward count as a defect.
		mu.Lock()
		done++
		onProgress(done, total)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.cfg.MaxParallel)

	for i := range pageTexts {
		pageNum := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			text := pageTexts[pageNum]
			if countNonSpace(text) >= e.cfg.MinCharsPerPage {
				texts[pageNum] = text
				report()
				return nil
			}

			// Text layer too thin, likely a scanned page.
			ocrText, ocrErr := e.ocrPage(gctx, pdfBytes, pageNum+1)
			usedOCR[pageNum] = true
			if ocrErr != nil {
				// Page-level OCR failure contributes an empty page.
				e.logger.Warn("OCR failed for page",
					logger.Int("page", pageNum+1),
					logger.Error(ocrErr),
				)
				texts[pageNum] = ""
				report()
				return nil
			}
			texts[pageNum] = ocrText
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	anyText := false
	for _, t := range texts {
		if countNonSpace(t) > 0 {
			anyText = true
			break
		}
	}
	if !anyText {
		return Result{}, ErrNoText
	}

	return Result{
		FullText:    strings.Join(texts, "\n"),
		PageTexts:   texts,
		PageUsedOCR: usedOCR,
	}, nil
}

func (e *PDFExtractor) ocrPage(ctx context.Context, pdfBytes []byte, page int) (string, error) {
	img, err := e.raster.RenderPage(ctx, pdfBytes, page)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize page %d: %w", page, err)
	}
	text, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("ocr failed on page %d: %w", page, err)
	}
	return text, nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			n++
		}
	}
	return n
}
