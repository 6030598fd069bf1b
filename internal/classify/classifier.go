// Package classify decides once, per document, which extraction strategy applies.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/pdf"
)

// Probe records what the text-layer probe of a PDF saw.
type Probe string

const (
	ProbeNone       Probe = ""           // not a PDF, no probe ran
	ProbeText       Probe = "text"       // non-whitespace text found
	ProbeEmpty      Probe = "empty"      // readable, but no text
	ProbeUnreadable Probe = "unreadable" // the reader failed
)

type Classification struct {
	Type     constants.DocType
	Declared constants.DeclaredType
	Probe    Probe
	// ProbeErr is the reader error behind ProbeUnreadable.
	ProbeErr error
}

// Classifier inspects a file's extension and, for PDFs, its text layer.
type Classifier struct {
	reader pdf.TextReader
	// Strict turns an unreadable PDF into UNREADABLE_DOCUMENT instead of falling back to OCR.
	Strict bool
	logger *slog.Logger
}

func NewClassifier(r pdf.TextReader, strict bool, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{reader: r, Strict: strict, logger: logger}
}

// Classify maps path to exactly one DocType. Unsupported files yield UNSUPPORTED_FILE_TYPE.
func (c *Classifier) Classify(ctx context.Context, path string) (Classification, error) {
	declared := constants.MapExtToDeclared(filepath.Ext(path))
	out := Classification{Declared: declared}

	switch declared {
	case constants.DeclaredImage:
		out.Type = constants.Image
		return out, nil
	case constants.DeclaredPDF:
	default:
		out.Type = constants.Unsupported
		return out, common.NewAppError(common.CodeUnsupportedFileType,
			"unsupported file type "+strings.ToLower(filepath.Ext(path)), nil)
	}

	text, err := c.reader.ReadText(ctx, path)
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return out, err
	case err != nil:
		out.Probe = ProbeUnreadable
		out.ProbeErr = err
		if c.Strict {
			return out, common.NewAppError(common.CodeUnreadableDocument, "pdf text layer could not be read", err)
		}
		c.logger.Warn("pdf probe failed; treating as image-only", "path", path, "error", err)
		out.Type = constants.ImagePDF
	case strings.TrimSpace(text) == "":
		out.Probe = ProbeEmpty
		out.Type = constants.ImagePDF
	default:
		out.Probe = ProbeText
		out.Type = constants.TextPDF
	}
	c.logger.Debug("document classified", "path", path, "type", out.Type, "probe", out.Probe)
	return out, nil
}
