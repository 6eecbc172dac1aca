package docproc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"ideascope/internal/models"
	"ideascope/internal/util"
)

// Processor downloads paper PDFs and turns them into heading-structured
// text. A paper that fails any step is marked unprocessed with the error
// recorded; the run continues on the remaining papers.
type Processor struct {
	dataRoot string
	http     *http.Client
	logger   *slog.Logger
}

func New(dataRoot string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		dataRoot: dataRoot,
		http:     &http.Client{Timeout: 120 * time.Second},
		logger:   logger,
	}
}

// ProcessPaper fetches the PDF, extracts text and populates the paper's
// headings. The paper is mutated in place; the returned error mirrors
// paper.ProcessingError for callers that want to fail fast.
func (p *Processor) ProcessPaper(ctx context.Context, runID string, paper *models.Paper) error {
	fail := func(err error) error {
		paper.IsProcessed = false
		paper.ProcessingError = err.Error()
		p.logger.Warn("paper processing failed",
			"run_id", runID, "paper_id", paper.PaperID, "err", err)
		return err
	}

	pdfPath, err := p.download(ctx, runID, paper)
	if err != nil {
		return fail(err)
	}
	defer os.Remove(pdfPath)

	text, err := ExtractText(pdfPath)
	if err != nil {
		return fail(err)
	}

	headings := SplitHeadings(paper.PaperID, text)
	if len(headings) == 0 {
		return fail(util.ErrNoHeadings)
	}
	paper.Headings = headings
	paper.IsProcessed = true
	paper.ProcessingError = ""
	now := time.Now().UTC()
	paper.ProcessedAt = &now
	return nil
}

func (p *Processor) download(ctx context.Context, runID string, paper *models.Paper) (string, error) {
	if strings.TrimSpace(paper.PDFURL) == "" {
		return "", fmt.Errorf("paper %s has no pdf url", paper.PaperID)
	}
	dir := filepath.Join(p.dataRoot, runID, "pdfs")
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paper.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("build pdf request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download pdf %s: %w", paper.PDFURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download pdf %s: status %d", paper.PDFURL, resp.StatusCode)
	}

	path := filepath.Join(dir, paper.PaperID+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write pdf file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close pdf file: %w", err)
	}
	return path, nil
}

// ExtractText pulls plain text out of a PDF and sanitizes it.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}
