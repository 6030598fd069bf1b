package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/doctext/internal/command"
)

// TesseractCLI shells out to the tesseract binary.
type TesseractCLI struct {
	runner command.Runner
	cfg    EngineConfig
}

func NewTesseractCLI(r command.Runner, cfg EngineConfig) *TesseractCLI {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	return &TesseractCLI{runner: r, cfg: cfg}
}

func (t *TesseractCLI) Name() string { return "tesseract" }

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string, opts Options) (string, error) {
	// tesseract <file> stdout -l <lang> [options]
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(imagePath, opts)...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, command.Truncate(strings.TrimSpace(string(errb)), 512))
	}
	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

func (t *TesseractCLI) args(imagePath string, opts Options) []string {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	args := []string{imagePath, "stdout", "-l", lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}
	return args
}
