package pdf

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/doctext/internal/command"
)

// Rasterizer renders every page of a PDF into outDir as page-<n>.png, n starting at 1.
// It returns the files it wrote; a page that failed to render is simply absent.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	Runner   command.Runner
	Bin      string
	DPI      int
	MaxPages int // 0 = no limit
}

func NewPdftoppm(r command.Runner, bin string, dpi, maxPages int) *Pdftoppm {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Pdftoppm{Runner: r, Bin: bin, DPI: dpi, MaxPages: maxPages}
}

func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <dir/page>
	args := []string{"-r", strconv.Itoa(p.DPI), "-png"}
	if p.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.MaxPages))
	}
	args = append(args, pdfPath, prefix)
	if _, errb, err := p.Runner.Run(ctx, p.Bin, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, command.Truncate(strings.TrimSpace(string(errb)), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero-padded to the page count width)
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// FitzRasterizer renders pages in-process with MuPDF.
type FitzRasterizer struct {
	DPI      int
	MaxPages int
	logger   *slog.Logger
}

func NewFitzRasterizer(dpi, maxPages int, logger *slog.Logger) *FitzRasterizer {
	if dpi <= 0 {
		dpi = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FitzRasterizer{DPI: dpi, MaxPages: maxPages, logger: logger}
}

func (f *FitzRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if f.MaxPages > 0 && pageCount > f.MaxPages {
		pageCount = f.MaxPages
	}

	out := make([]string, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		img, err := doc.ImageDPI(n, float64(f.DPI))
		if err != nil {
			f.logger.Warn("page render failed", "path", pdfPath, "page", n+1, "error", err)
			continue
		}
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", n+1))
		if err := writePNG(name, img); err != nil {
			f.logger.Warn("page encode failed", "path", pdfPath, "page", n+1, "error", err)
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
