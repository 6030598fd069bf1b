// Package ocr wraps the optical-recognition engines behind one interface.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/doctext/internal/command"
)

// Options are the per-job recognition settings.
type Options struct {
	Language  string // tesseract language code, e.g. "eng" or "eng+deu"
	Whitelist string // optional; restricts the recognised characters
}

// Engine recognises the text in a single image file.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string, opts Options) (string, error)
}

// EngineConfig selects and configures an engine.
type EngineConfig struct {
	Engine      string // tesseract | gosseract
	Tesseract   string
	TessdataDir string
	PSM         int
	OEM         int
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg EngineConfig, r command.Runner, logger *slog.Logger) (Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "tesseract":
		return NewTesseractCLI(r, cfg), nil
	case "gosseract":
		return newGosseract(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
