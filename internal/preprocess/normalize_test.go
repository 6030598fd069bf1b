package preprocess

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/common"
)

func writeGradient(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func newScope(t *testing.T) *artifact.Scope {
	t.Helper()
	s, err := artifact.NewManager(t.TempDir(), nil).NewScope("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Release() })
	return s
}

func TestNormalizeIsDeterministic(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.png")
	writeGradient(t, src, 64, 32)
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	p := Params{ResizeWidth: 120, Threshold: 200}
	a := filepath.Join(t.TempDir(), "a.png")
	b := filepath.Join(t.TempDir(), "b.png")
	require.NoError(t, NormalizeFile(src, a, p))
	require.NoError(t, NormalizeFile(src, b, p))

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after, "input must not be mutated")
}

func TestNormalizeImageRecipe(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 20))
	for x := 0; x < 50; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(x * 5), B: uint8(x * 5), A: 255})
		}
	}

	g := NormalizeImage(img, Params{ResizeWidth: 100, Threshold: 128})
	assert.Equal(t, 100, g.Bounds().Dx())
	assert.Equal(t, 40, g.Bounds().Dy())
	for _, v := range g.Pix {
		assert.True(t, v == 0 || v == 255, "pixel %d is not binary", v)
	}
	// dark left edge, light right edge
	assert.Equal(t, uint8(0), g.GrayAt(0, 10).Y)
	assert.Equal(t, uint8(255), g.GrayAt(99, 10).Y)
}

func TestStageNormalizeTracksArtifact(t *testing.T) {
	scope := newScope(t)
	src := filepath.Join(t.TempDir(), "page.png")
	writeGradient(t, src, 40, 40)

	a, err := NewStage(nil).Normalize(context.Background(), scope, 2, src, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, scope.Path("page-2-normalized.png"), a.Path)
	assert.Equal(t, artifact.OwnerPreprocess, a.Owner)
	assert.FileExists(t, a.Path)
	assert.Len(t, scope.Artifacts(), 1)
}

func TestStageNormalizeCorruptImage(t *testing.T) {
	scope := newScope(t)
	src := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o600))

	_, err := NewStage(nil).Normalize(context.Background(), scope, 0, src, DefaultParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPreprocessingFailure))
}

func TestStageNormalizeRejectsBadParams(t *testing.T) {
	scope := newScope(t)
	_, err := NewStage(nil).Normalize(context.Background(), scope, 0, "x.png", Params{ResizeWidth: 0, Threshold: 10})
	assert.True(t, errors.Is(err, common.ErrPreprocessingFailure))
}

func TestParamsWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), Params{}.WithDefaults())
	assert.Equal(t, Params{ResizeWidth: 60, Threshold: 200}, Params{ResizeWidth: 60}.WithDefaults())
	assert.Equal(t, Params{ResizeWidth: 1200, Threshold: 150}, Params{Threshold: 150}.WithDefaults())
	assert.Error(t, Params{ResizeWidth: -1}.WithDefaults().Validate())
	assert.Error(t, Params{Threshold: 256}.WithDefaults().Validate())
}
