package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Rasterizer renders a single PDF page to an image for OCR.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfBytes []byte, page int) ([]byte, error)
}

// PopplerRasterizer shells out to pdftoppm, which is also what the usual
// Python pdf2image stack drives underneath. The page is rendered to PNG on
// stdout.
type PopplerRasterizer struct {
	DPI int
}

func NewPopplerRasterizer() *PopplerRasterizer {
	return &PopplerRasterizer{DPI: 300}
}

func (r *PopplerRasterizer) RenderPage(ctx context.Context, pdfBytes []byte, page int) ([]byte, error) {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}

	p := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", p,
		"-l", p,
		"-",
	)
	cmd.Stdin = bytes.NewReader(pdfBytes)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for page %d: %w: %s", page, err, stderr.String())
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", page)
	}
	return out.Bytes(), nil
}
