package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/classify"
	"github.com/joseph-ayodele/doctext/internal/command"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/convert"
	"github.com/joseph-ayodele/doctext/internal/extract"
	"github.com/joseph-ayodele/doctext/internal/ocr"
	"github.com/joseph-ayodele/doctext/internal/pdf"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
	"github.com/joseph-ayodele/doctext/internal/preprocess"
)

type app struct {
	logger    *slog.Logger
	orch      *pipeline.Orchestrator
	artifacts *artifact.Manager
	defaults  pipeline.JobOptions
}

// newLogger builds the process logger. Output goes to w so stdout stays free for extracted text.
func newLogger(c common.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newApp(c *common.Config, logger *slog.Logger) (*app, error) {
	runner := command.NewExecRunner(logger, c.Pipeline.CommandTimeout)

	var reader pdf.TextReader
	switch strings.ToLower(c.PDF.TextReader) {
	case "native":
		reader = pdf.NewNativeReader(logger)
	default:
		reader = pdf.NewPdftotext(runner, c.PDF.Pdftotext)
	}

	var rasterizer pdf.Rasterizer
	switch strings.ToLower(c.PDF.Rasterizer) {
	case "fitz":
		rasterizer = pdf.NewFitzRasterizer(c.PDF.DPI, c.PDF.MaxPages, logger)
	default:
		rasterizer = pdf.NewPdftoppm(runner, c.PDF.Pdftoppm, c.PDF.DPI, c.PDF.MaxPages)
	}

	engine, err := ocr.NewEngine(ocr.EngineConfig{
		Engine:      c.OCR.Engine,
		Tesseract:   c.OCR.Tesseract,
		TessdataDir: c.OCR.TessdataDir,
		PSM:         c.OCR.PSM,
		OEM:         c.OCR.OEM,
	}, runner, logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "cannot build OCR engine", err)
	}

	artifacts := artifact.NewManager(c.Pipeline.WorkRoot, logger)
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Classifier: classify.NewClassifier(reader, c.Pipeline.FailOnUnreadablePDF, logger),
		TextLayer:  extract.NewTextLayer(reader, logger),
		Converter:  convert.NewAdapter(rasterizer, c.PDF.MaxPages, logger),
		Preprocess: preprocess.NewStage(logger),
		Engine:     engine,
		Artifacts:  artifacts,
	}, logger,
		pipeline.WithWorkers(c.Pipeline.Workers),
		pipeline.WithPageTimeout(c.Pipeline.PageTimeout),
		pipeline.WithJobTimeout(c.Pipeline.JobTimeout),
	)

	logger.Debug("pipeline configured",
		"text_reader", c.PDF.TextReader,
		"rasterizer", c.PDF.Rasterizer,
		"ocr_engine", engine.Name(),
		"workers", c.Pipeline.Workers,
		"work_root", c.Pipeline.WorkRoot,
	)
	return &app{
		logger:    logger,
		orch:      orch,
		artifacts: artifacts,
		defaults: pipeline.JobOptions{
			Language:  c.OCR.Language,
			Whitelist: c.OCR.Whitelist,
			Preprocess: preprocess.Params{
				ResizeWidth: c.Preprocess.ResizeWidth,
				Threshold:   c.Preprocess.Threshold,
			},
		},
	}, nil
}
