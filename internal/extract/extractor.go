// Package extract turns a classified source into text.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/ocr"
	"github.com/joseph-ayodele/doctext/internal/pdf"
)

// Extractor recognises the text of one source: a PDF for TextLayer, a page image for OCR.
type Extractor interface {
	Extract(ctx context.Context, source string) (string, error)
}

// TextLayer reads the embedded text of a TextPDF. Its failures are terminal for the job.
type TextLayer struct {
	reader pdf.TextReader
	logger *slog.Logger
}

func NewTextLayer(r pdf.TextReader, logger *slog.Logger) *TextLayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLayer{reader: r, logger: logger}
}

func (t *TextLayer) Extract(ctx context.Context, source string) (string, error) {
	start := time.Now()
	text, err := t.reader.ReadText(ctx, source)
	if err != nil {
		if isContextErr(err) {
			return "", err
		}
		return "", common.NewAppError(common.CodeRecognitionFailure, "text layer could not be read", err)
	}
	t.logger.Debug("text layer read", "path", source, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// OCR recognises a single normalised page image.
type OCR struct {
	engine ocr.Engine
	opts   ocr.Options
	logger *slog.Logger
}

func NewOCR(e ocr.Engine, opts ocr.Options, logger *slog.Logger) *OCR {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "eng"
	}
	return &OCR{engine: e, opts: opts, logger: logger}
}

func (o *OCR) Extract(ctx context.Context, source string) (string, error) {
	start := time.Now()
	raw, err := o.engine.Recognize(ctx, source, o.opts)
	if err != nil {
		if isContextErr(err) {
			return "", err
		}
		return "", common.NewAppError(common.CodeRecognitionFailure, "text recognition failed", err)
	}
	text := ocr.Normalize(raw)
	o.logger.Debug("page recognised",
		"engine", o.engine.Name(),
		"path", source,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
