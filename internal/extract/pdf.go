package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// LedongthucReader reads the PDF text layer with ledongthuc/pdf. Pages whose
// content it cannot decode contribute an empty string so the extractor can
// route them to OCR.
type LedongthucReader struct{}

func NewTextLayerReader() *LedongthucReader {
	return &LedongthucReader{}
}

func (r *LedongthucReader) PageTexts(pdfBytes []byte) ([]string, error) {
	reader := bytes.NewReader(pdfBytes)

	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	texts := make([]string, numPages)

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Undecodable text layer; leave empty and let OCR take over.
			continue
		}
		texts[i-1] = text
	}

	return texts, nil
}
