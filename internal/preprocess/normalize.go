// Package preprocess normalises page images before recognition.
//
// The recipe is fixed: resize to a target width, grayscale, stretch contrast, binarise.
// Given the same input and Params the output PNG is byte-identical.
package preprocess

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/common"
)

// Params is the explicit normalisation recipe.
type Params struct {
	ResizeWidth int // target width in pixels; height keeps the aspect ratio
	Threshold   int // 0..255; luminance at or above it becomes white
}

func DefaultParams() Params {
	return Params{ResizeWidth: 1200, Threshold: 200}
}

// WithDefaults fills each zero field from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.ResizeWidth == 0 {
		p.ResizeWidth = d.ResizeWidth
	}
	if p.Threshold == 0 {
		p.Threshold = d.Threshold
	}
	return p
}

func (p Params) Validate() error {
	if p.ResizeWidth <= 0 {
		return fmt.Errorf("resize width must be positive, got %d", p.ResizeWidth)
	}
	if p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("threshold must be within 0..255, got %d", p.Threshold)
	}
	return nil
}

// Stage writes normalised copies of page images into the job scope.
type Stage struct {
	logger *slog.Logger
}

func NewStage(logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{logger: logger}
}

// Normalize reads in, writes {jobDir}/page-{index}-normalized.png and returns it as a new artifact
// owned by the preprocess stage. The input file is never modified.
func (s *Stage) Normalize(ctx context.Context, scope *artifact.Scope, index int, in string, p Params) (artifact.Artifact, error) {
	if err := p.Validate(); err != nil {
		return artifact.Artifact{}, common.NewAppError(common.CodePreprocessingFailure, "invalid preprocessing parameters", err)
	}
	if err := ctx.Err(); err != nil {
		return artifact.Artifact{}, err
	}

	out := scope.Path(fmt.Sprintf("page-%d-normalized.png", index))
	a, err := scope.Track(out, artifact.OwnerPreprocess)
	if err != nil {
		return artifact.Artifact{}, common.NewAppError(common.CodePreprocessingFailure, "cannot allocate output", err)
	}
	if err := NormalizeFile(in, out, p); err != nil {
		s.logger.Warn("preprocessing failed", "page", index, "path", in, "error", err)
		return artifact.Artifact{}, common.NewAppError(common.CodePreprocessingFailure, "image preprocessing failed", err)
	}
	s.logger.Debug("page normalized", "page", index, "out", out)
	return a, nil
}

// NormalizeFile decodes src, normalises it and encodes the result as PNG at dst.
func NormalizeFile(src, dst string, p Params) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	gray := NormalizeImage(img, p)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(out, gray); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return out.Close()
}

// NormalizeImage applies resize, grayscale, contrast stretch and threshold in that order.
func NormalizeImage(img image.Image, p Params) *image.Gray {
	resized := resize(img, p.ResizeWidth)
	gray := toGray(resized)
	stretchContrast(gray)
	binarize(gray, uint8(p.Threshold))
	return gray
}

func resize(img image.Image, width int) *image.RGBA {
	sb := img.Bounds()
	height := 1
	if sb.Dx() > 0 {
		height = (sb.Dy()*width + sb.Dx()/2) / sb.Dx()
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// transparent regions become paper white
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, sb, draw.Over, nil)
	return dst
}

func toGray(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x, y, color.GrayModel.Convert(img.RGBAAt(x, y)).(color.Gray))
		}
	}
	return gray
}

// stretchContrast maps the 1st..99th luminance percentiles onto 0..255.
func stretchContrast(g *image.Gray) {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return
	}
	cut := total / 100
	lo, hi := 0, 255
	for acc := 0; lo < 255; lo++ {
		acc += hist[lo]
		if acc > cut {
			break
		}
	}
	for acc := 0; hi > 0; hi-- {
		acc += hist[hi]
		if acc > cut {
			break
		}
	}
	if hi <= lo {
		return
	}
	var lut [256]uint8
	for v := 0; v < 256; v++ {
		switch {
		case v <= lo:
			lut[v] = 0
		case v >= hi:
			lut[v] = 255
		default:
			lut[v] = uint8((v - lo) * 255 / (hi - lo))
		}
	}
	for i, v := range g.Pix {
		g.Pix[i] = lut[v]
	}
}

func binarize(g *image.Gray, threshold uint8) {
	for i, v := range g.Pix {
		if v >= threshold {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
}
