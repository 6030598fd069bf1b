//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in-process. Build with -tags gosseract.
type Gosseract struct {
	cfg    EngineConfig
	logger *slog.Logger
}

func newGosseract(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gosseract{cfg: cfg, logger: logger}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

type recognizeOutcome struct {
	text string
	err  error
}

// Recognize uses a fresh client per call; clients are not safe for concurrent use.
func (g *Gosseract) Recognize(ctx context.Context, imagePath string, opts Options) (string, error) {
	done := make(chan recognizeOutcome, 1)
	go func() {
		text, err := g.recognize(imagePath, opts)
		done <- recognizeOutcome{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func (g *Gosseract) recognize(imagePath string, opts Options) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := c.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if opts.Whitelist != "" {
		if err := c.SetWhitelist(opts.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if g.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	g.logger.Debug("gosseract ok", "path", imagePath, "bytes", len(text))
	return text, nil
}
