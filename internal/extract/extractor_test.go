package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/propos4l/proposal-engine/pkg/logger"
)

type fakeLayer struct {
	pages []string
	err   error
}

func (f *fakeLayer) PageTexts(pdfBytes []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeRaster struct {
	err error
}

func (f *fakeRaster) RenderPage(ctx context.Context, pdfBytes []byte, page int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

type fakeOCR struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.text, f.err
}

func newExtractor(layer TextLayerReader, raster Rasterizer, ocr Engine) *PDFExtractor {
	return NewPDFExtractor(layer, raster, ocr, Config{MinCharsPerPage: 10}, logger.NewTestLogger())
}

func TestExtractTextLayerOnly(t *testing.T) {
	layer := &fakeLayer{pages: []string{
		"this page has plenty of extractable text in it",
		"and so does this second page of the document",
	}}
	ocr := &fakeOCR{text: "should not be used"}
	e := newExtractor(layer, &fakeRaster{}, ocr)

	res, err := e.Extract(context.Background(), []byte("pdf"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if ocr.calls != 0 {
		t.Fatalf("OCR invoked for pages with a healthy text layer (%d calls)", ocr.calls)
	}
	for i, used := range res.PageUsedOCR {
		if used {
			t.Fatalf("page %d flagged as OCR", i)
		}
	}
	if !strings.Contains(res.FullText, "second page") {
		t.Fatal("full text missing page content")
	}
}

func TestExtractRoutesThinPagesToOCR(t *testing.T) {
	layer := &fakeLayer{pages: []string{
		"a long enough first page with a real text layer",
		"   ", // scanned page, no text layer
	}}
	ocr := &fakeOCR{text: "recovered by optical recognition"}
	e := newExtractor(layer, &fakeRaster{}, ocr)

	res, err := e.Extract(context.Background(), []byte("pdf"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if ocr.calls != 1 {
		t.Fatalf("expected exactly one OCR call, got %d", ocr.calls)
	}
	if res.PageUsedOCR[0] || !res.PageUsedOCR[1] {
		t.Fatalf("OCR flags wrong: %v", res.PageUsedOCR)
	}
	if res.PageTexts[1] != "recovered by optical recognition" {
		t.Fatalf("OCR text not used: %q", res.PageTexts[1])
	}
}

func TestExtractOCRFailureIsNonFatal(t *testing.T) {
	layer := &fakeLayer{pages: []string{
		"a long enough first page with a real text layer",
		"",
	}}
	ocr := &fakeOCR{err: errors.New("tesseract exploded")}
	e := newExtractor(layer, &fakeRaster{}, ocr)

	res, err := e.Extract(context.Background(), []byte("pdf"))
	if err != nil {
		t.Fatalf("single-page OCR failure must not fail extraction: %v", err)
	}

	if res.PageTexts[1] != "" {
		t.Fatalf("failed page should contribute empty text, got %q", res.PageTexts[1])
	}
	if !res.PageUsedOCR[1] {
		t.Fatal("failed OCR page must still be flagged")
	}
}

func TestExtractFailsWhenNoPageHasText(t *testing.T) {
	layer := &fakeLayer{pages: []string{"", ""}}
	ocr := &fakeOCR{err: errors.New("nothing recognized")}
	e := newExtractor(layer, &fakeRaster{}, ocr)

	_, err := e.Extract(context.Background(), []byte("pdf"))
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractRasterFailureIsNonFatal(t *testing.T) {
	layer := &fakeLayer{pages: []string{
		"a long enough first page with a real text layer",
		"",
	}}
	e := newExtractor(layer, &fakeRaster{err: errors.New("poppler missing")}, &fakeOCR{})

	res, err := e.Extract(context.Background(), []byte("pdf"))
	if err != nil {
		t.Fatalf("raster failure on one page must not fail extraction: %v", err)
	}
	if res.PageTexts[1] != "" || !res.PageUsedOCR[1] {
		t.Fatalf("unexpected page result: %q / %v", res.PageTexts[1], res.PageUsedOCR[1])
	}
}

func TestExtractInvalidPDF(t *testing.T) {
	layer := &fakeLayer{err: errors.New("invalid pdf: broken xref")}
	e := newExtractor(layer, &fakeRaster{}, &fakeOCR{})

	if _, err := e.Extract(context.Background(), []byte("not a pdf")); err == nil {
		t.Fatal("expected error for unreadable pdf")
	}
}

func TestExtractProgressCoversAllPages(t *testing.T) {
	pages := make([]string, 7)
	for i := range pages {
		pages[i] = "a long enough page with a real text layer here"
	}
	e := newExtractor(&fakeLayer{pages: pages}, &fakeRaster{}, &fakeOCR{})

	var mu sync.Mutex
	seen := map[int]bool{}
	_, err := e.ExtractProgress(context.Background(), []byte("pdf"), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 7 {
			t.Errorf("unexpected total %d", total)
		}
		seen[done] = true
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !seen[7] {
		t.Fatal("progress never reached the final page")
	}
}

func TestExtractProgressCountsNeverMoveBackward(t *testing.T) {
	pages := make([]string, 128)
	for i := range pages {
		pages[i] = "a long enough page with a real text layer here"
	}
	e := NewPDFExtractor(&fakeLayer{pages: pages}, &fakeRaster{}, &fakeOCR{},
		Config{MinCharsPerPage: 10, MaxParallel: 8}, logger.NewTestLogger())

	last := 0
	_, err := e.ExtractProgress(context.Background(), []byte("pdf"), func(done, total int) {
		if done != last+1 {
			t.Errorf("page count moved %d -> %d", last, done)
		}
		last = done
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if last != len(pages) {
		t.Fatalf("final count = %d, want %d", last, len(pages))
	}
}
