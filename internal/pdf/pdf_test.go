package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls [][]string
	run   func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.run(name, args)
}

func TestPdftotextReadText(t *testing.T) {
	r := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte("page one\fpage two\f"), nil, nil
	}}
	text, err := NewPdftotext(r, "").ReadText(context.Background(), "/in/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "page one\fpage two\f", text)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "/in/doc.pdf", "-"}, r.calls[0])
}

func TestPdftotextError(t *testing.T) {
	r := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), errors.New("exit status 1")
	}}
	_, err := NewPdftotext(r, "").ReadText(context.Background(), "/in/broken.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer")
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitPages("a\fb\f"))
	assert.Equal(t, []string{"a", "", "c"}, SplitPages("a\f\fc"))
	assert.Equal(t, []string{"only"}, SplitPages("only"))
	assert.Equal(t, []string{""}, SplitPages(""))
}

func TestPdftoppmRasterize(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{run: func(_ string, args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		for i := 1; i <= 3; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}}
	p := NewPdftoppm(r, "", 150, 2)

	files, err := p.Rasterize(context.Background(), "/in/scan.pdf", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "page-1.png"),
		filepath.Join(dir, "page-2.png"),
		filepath.Join(dir, "page-3.png"),
	}, files)
	assert.Equal(t, []string{"pdftoppm", "-r", "150", "-png", "-l", "2", "/in/scan.pdf", filepath.Join(dir, "page")}, r.calls[0])
}

func TestPdftoppmFailure(t *testing.T) {
	r := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("I/O Error"), errors.New("exit status 99")
	}}
	_, err := NewPdftoppm(r, "", 0, 0).Rasterize(context.Background(), "/in/scan.pdf", t.TempDir())
	require.Error(t, err)
}

func TestNativeReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o600))

	_, err := NewNativeReader(nil).ReadText(context.Background(), path)
	assert.Error(t, err)
}

func TestNativeReaderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "any.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	_, err := NewNativeReader(nil).ReadText(ctx, path)
	assert.Error(t, err)
}
