// Package convert turns an image-only PDF into an ordered sequence of page images.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/pdf"
)

var rePageFile = regexp.MustCompile(`^page-(\d+)\.png$`)

// Page is one rasterised page. Index is 0-based in source order.
type Page struct {
	Index    int
	Artifact artifact.Artifact
}

// Conversion is the ordered output of Convert. A non-empty Missing marks the sequence as partial.
type Conversion struct {
	Pages    []Page
	Missing  []int
	Warnings []string
}

func (c Conversion) Partial() bool { return len(c.Missing) > 0 }

// PageCount is the number of source pages the conversion accounts for.
func (c Conversion) PageCount() int { return len(c.Pages) + len(c.Missing) }

// Adapter wraps a pdf.Rasterizer.
type Adapter struct {
	rasterizer pdf.Rasterizer
	maxPages   int
	logger     *slog.Logger
}

func NewAdapter(r pdf.Rasterizer, maxPages int, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{rasterizer: r, maxPages: maxPages, logger: logger}
}

// Convert rasterises pdfPath into the job scope as {jobDir}/page-{index:04d}.png.
func (a *Adapter) Convert(ctx context.Context, pdfPath string, scope *artifact.Scope) (Conversion, error) {
	rawDir := scope.Path("raster")
	if err := os.Mkdir(rawDir, 0o700); err != nil {
		return Conversion{}, common.NewAppError(common.CodeConversionFailure, "cannot prepare output directory", err)
	}
	defer func() { _ = os.RemoveAll(rawDir) }()

	files, err := a.rasterizer.Rasterize(ctx, pdfPath, rawDir)
	if err != nil {
		if ctx.Err() != nil {
			return Conversion{}, ctx.Err()
		}
		return Conversion{}, common.NewAppError(common.CodeConversionFailure, "pdf conversion failed", err)
	}

	numbered := map[int]string{}
	maxN := 0
	for _, f := range files {
		m := rePageFile.FindStringSubmatch(filepath.Base(f))
		if m == nil {
			a.logger.Warn("ignoring unexpected rasterizer output", "file", f)
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			a.logger.Warn("ignoring unexpected rasterizer output", "file", f)
			continue
		}
		numbered[n] = f
		if n > maxN {
			maxN = n
		}
	}
	if len(numbered) == 0 {
		return Conversion{}, common.NewAppError(common.CodeConversionFailure, "pdf conversion produced no pages", nil)
	}

	nums := make([]int, 0, len(numbered))
	for n := range numbered {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var conv Conversion
	for n := 1; n <= maxN; n++ {
		if _, ok := numbered[n]; !ok {
			conv.Missing = append(conv.Missing, n-1)
		}
	}
	for _, n := range nums {
		idx := n - 1
		dst := scope.Path(fmt.Sprintf("page-%04d.png", idx))
		art, err := scope.Track(dst, artifact.OwnerConversion)
		if err != nil {
			return Conversion{}, common.NewAppError(common.CodeConversionFailure, "cannot allocate page artifact", err)
		}
		if err := os.Rename(numbered[n], dst); err != nil {
			return Conversion{}, common.NewAppError(common.CodeConversionFailure, "cannot move page image", err)
		}
		conv.Pages = append(conv.Pages, Page{Index: idx, Artifact: art})
	}

	if conv.Partial() {
		a.logger.Warn("pdf conversion incomplete", "path", pdfPath, "missing", conv.Missing)
	}
	if a.maxPages > 0 && maxN >= a.maxPages {
		conv.Warnings = append(conv.Warnings, fmt.Sprintf("page limit of %d reached; the document may have been truncated", a.maxPages))
	}
	a.logger.Debug("pdf converted", "path", pdfPath, "pages", len(conv.Pages), "missing", len(conv.Missing))
	return conv, nil
}
