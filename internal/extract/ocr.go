package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Engine runs OCR over one rendered page image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine runs tesseract through gosseract, one client per call.
// Calls are bounded by Timeout; a stuck recognition is reported as an error
// rather than blocking the pipeline.
type TesseractEngine struct {
	Languages []string
	Timeout   time.Duration
}

func NewTesseractEngine(timeout time.Duration) *TesseractEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TesseractEngine{
		Languages: []string{"eng"},
		Timeout:   timeout,
	}
}

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	type ocrResult struct {
		text string
		err  error
	}
	resultCh := make(chan ocrResult, 1)

	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		if len(e.Languages) > 0 {
			if err := client.SetLanguage(e.Languages...); err != nil {
				resultCh <- ocrResult{err: fmt.Errorf("failed to set language: %w", err)}
				return
			}
		}
		if err := client.SetImageFromBytes(image); err != nil {
			resultCh <- ocrResult{err: fmt.Errorf("failed to set image: %w", err)}
			return
		}
		text, err := client.Text()
		resultCh <- ocrResult{text: text, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return "", r.err
		}
		return r.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("ocr timed out: %w", ctx.Err())
	}
}
