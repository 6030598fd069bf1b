// Package pdf reads embedded text layers and renders pages to images.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/doctext/internal/command"
)

// TextReader returns the embedded text layer of a PDF, pages separated by a form feed.
type TextReader interface {
	ReadText(ctx context.Context, path string) (string, error)
}

// Pdftotext reads the text layer with poppler's pdftotext.
type Pdftotext struct {
	Runner command.Runner
	Bin    string
}

func NewPdftotext(r command.Runner, bin string) *Pdftotext {
	if bin == "" {
		bin = "pdftotext"
	}
	return &Pdftotext{Runner: r, Bin: bin}
}

func (p *Pdftotext) ReadText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.Runner.Run(ctx, p.Bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, command.Truncate(strings.TrimSpace(string(errb)), 512))
	}
	// A form-feed \f is used as page separator by default
	return string(out), nil
}

// NativeReader reads the text layer in-process.
type NativeReader struct {
	logger *slog.Logger
}

func NewNativeReader(logger *slog.Logger) *NativeReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeReader{logger: logger}
}

type readOutcome struct {
	text string
	err  error
}

// ReadText parses the file on a separate goroutine; if ctx ends first the parse is abandoned.
func (n *NativeReader) ReadText(ctx context.Context, path string) (string, error) {
	done := make(chan readOutcome, 1)
	go func() {
		text, err := n.read(path)
		done <- readOutcome{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func (n *NativeReader) read(path string) (text string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	numPages := r.NumPage()
	fonts := make(map[string]*lpdf.Font)
	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			b.WriteString("\f")
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f2 := p.Font(name)
				fonts[name] = &f2
			}
		}
		pageText, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		b.WriteString(pageText)
	}
	n.logger.Debug("native text layer read", "path", path, "pages", numPages, "bytes", b.Len())
	return b.String(), nil
}

// SplitPages splits a text layer on form feeds. A trailing empty segment left by a final
// form feed is dropped.
func SplitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
