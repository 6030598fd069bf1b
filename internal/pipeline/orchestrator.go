package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/classify"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/convert"
	"github.com/joseph-ayodele/doctext/internal/extract"
	"github.com/joseph-ayodele/doctext/internal/ocr"
	"github.com/joseph-ayodele/doctext/internal/pdf"
	"github.com/joseph-ayodele/doctext/internal/preprocess"
)

// JobOptions are the per-job settings. Nothing is read from process-wide state.
type JobOptions struct {
	JobID      string // optional; a UUID is generated when empty
	Language   string // defaults to "eng"
	Whitelist  string
	Preprocess preprocess.Params // zero fields take their value from preprocess.DefaultParams()
}

// Deps are the stages the orchestrator composes.
type Deps struct {
	Classifier *classify.Classifier
	TextLayer  extract.Extractor
	Converter  *convert.Adapter
	Preprocess *preprocess.Stage
	Engine     ocr.Engine
	Artifacts  *artifact.Manager
}

// Orchestrator runs one job per Run call. It is safe for concurrent use.
type Orchestrator struct {
	deps        Deps
	logger      *slog.Logger
	workers     int
	pageTimeout time.Duration
	jobTimeout  time.Duration
}

type Option func(*Orchestrator)

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithPageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pageTimeout = d
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

func NewOrchestrator(deps Deps, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		deps:        deps,
		logger:      logger,
		workers:     runtime.NumCPU(),
		pageTimeout: 2 * time.Minute,
		jobTimeout:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run extracts the text of the document at path. On failure the error is a *JobError.
// The job's working directory is released on every return path.
func (o *Orchestrator) Run(ctx context.Context, path string, opts JobOptions) (Result, error) {
	job := NewJob(opts.JobID, path)
	ctx = common.WithJobID(ctx, job.ID)
	logger := common.LoggerFrom(ctx, o.logger)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	defer cancel()

	opts.Preprocess = opts.Preprocess.WithDefaults()
	if err := opts.Preprocess.Validate(); err != nil {
		return Result{}, o.fail(logger, job, nil, common.NewAppError(common.CodeInvalidInput, "invalid preprocessing parameters", err))
	}

	scope, err := o.deps.Artifacts.NewScope(job.ID)
	if err != nil {
		return Result{}, o.fail(logger, job, nil, err)
	}
	defer func() { _ = scope.Release() }()

	logger.Info("job received", "path", path)

	cls, err := o.deps.Classifier.Classify(ctx, path)
	job.Document.Declared = cls.Declared
	if err != nil {
		return Result{}, o.fail(logger, job, nil, o.jobErr(ctx, err))
	}
	job.Document.Detected = cls.Type
	if err := o.advance(logger, job, constants.JobStatusClassified); err != nil {
		return Result{}, o.fail(logger, job, nil, err)
	}

	var (
		pages    []Page
		warnings []string
	)
	switch cls.Type {
	case constants.TextPDF:
		pages, err = o.runTextLayer(ctx, logger, job, path)
	case constants.ImagePDF:
		pages, warnings, err = o.runImagePDF(ctx, logger, job, scope, path, opts)
	case constants.Image:
		pages = []Page{{Index: 0, Source: path}}
		err = o.runOCR(ctx, logger, job, scope, pages, opts)
	default:
		err = common.NewAppError(common.CodeUnsupportedFileType, "unsupported file type", nil)
	}
	if err != nil {
		return Result{}, o.fail(logger, job, append(warnings, recordedWarnings(pages)...), err)
	}

	if err := o.advance(logger, job, constants.JobStatusAggregated); err != nil {
		return Result{}, o.fail(logger, job, warnings, err)
	}
	res, err := Aggregate(pages)
	warnings = append(warnings, res.Warnings...)
	if err != nil {
		return Result{}, o.fail(logger, job, warnings, err)
	}
	if err := o.advance(logger, job, constants.JobStatusDone); err != nil {
		return Result{}, o.fail(logger, job, warnings, err)
	}

	res.JobID = job.ID
	res.Type = job.Document.Detected
	res.Warnings = warnings
	res.History = job.History
	logger.Info("job done",
		"type", res.Type,
		"pages", len(res.PerPage),
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) runTextLayer(ctx context.Context, logger *slog.Logger, job *Job, path string) ([]Page, error) {
	if err := o.advance(logger, job, constants.JobStatusTextExtracting); err != nil {
		return nil, err
	}
	text, err := o.deps.TextLayer.Extract(ctx, path)
	if err != nil {
		return nil, o.jobErr(ctx, err)
	}
	split := pdf.SplitPages(text)
	pages := make([]Page, len(split))
	for i, s := range split {
		pages[i] = Page{Index: i, Text: strings.TrimSpace(s)}
	}
	return pages, nil
}

func (o *Orchestrator) runImagePDF(ctx context.Context, logger *slog.Logger, job *Job, scope *artifact.Scope, path string, opts JobOptions) ([]Page, []string, error) {
	if err := o.advance(logger, job, constants.JobStatusConverting); err != nil {
		return nil, nil, err
	}
	conv, err := o.deps.Converter.Convert(ctx, path, scope)
	if err != nil {
		return nil, nil, o.jobErr(ctx, err)
	}

	pages := make([]Page, conv.PageCount())
	for i := range pages {
		pages[i] = Page{
			Index: i,
			Err:   common.NewAppError(common.CodeConversionFailure, "page was not rendered", nil),
		}
	}
	for _, p := range conv.Pages {
		pages[p.Index] = Page{Index: p.Index, Source: p.Artifact.Path}
	}
	return pages, conv.Warnings, o.runOCR(ctx, logger, job, scope, pages, opts)
}

// runOCR preprocesses then recognises every page that has not already failed.
func (o *Orchestrator) runOCR(ctx context.Context, logger *slog.Logger, job *Job, scope *artifact.Scope, pages []Page, opts JobOptions) error {
	extractor := extract.NewOCR(o.deps.Engine, ocr.Options{Language: opts.Language, Whitelist: opts.Whitelist}, logger)

	if err := o.advance(logger, job, constants.JobStatusPreprocessing); err != nil {
		return err
	}
	err := o.forEachPage(ctx, pages, common.CodePreprocessingFailure, func(pctx context.Context, p *Page) error {
		img, err := o.deps.Preprocess.Normalize(pctx, scope, p.Index, p.Source, opts.Preprocess)
		p.Image = img
		return err
	})
	if err != nil {
		return err
	}

	if err := o.advance(logger, job, constants.JobStatusOCRExtracting); err != nil {
		return err
	}
	return o.forEachPage(ctx, pages, common.CodeRecognitionFailure, func(pctx context.Context, p *Page) error {
		text, err := extractor.Extract(pctx, p.Image.Path)
		p.Text = text
		return err
	})
}

// forEachPage runs fn on the bounded worker pool for each page without an error. A page error stays on
// that page. Dispatch stops once ctx is done, and the job's context error is returned.
func (o *Orchestrator) forEachPage(ctx context.Context, pages []Page, code common.Code, fn func(context.Context, *Page) error) error {
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i := range pages {
		if pages[i].Err != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p := &pages[i]
		g.Go(func() error {
			// g.Go may have waited for a free slot
			if err := ctx.Err(); err != nil {
				p.Err = common.FromContext(err)
				return nil
			}
			pctx, cancel := context.WithTimeout(ctx, o.pageTimeout)
			defer cancel()
			err := fn(pctx, p)
			if err != nil && common.CodeOf(err) == "" {
				switch {
				case ctx.Err() != nil:
					err = common.FromContext(ctx.Err())
				case pctx.Err() != nil:
					err = common.NewAppError(code, "page timed out", err)
				}
			}
			p.Err = err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return common.FromContext(err)
	}
	return nil
}

func (o *Orchestrator) advance(logger *slog.Logger, job *Job, to constants.JobStatus) error {
	if err := job.Advance(to); err != nil {
		return err
	}
	logger.Debug("job state", "status", to)
	return nil
}

// jobErr turns a context error seen by a stage into JOB_CANCELLED.
func (o *Orchestrator) jobErr(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return common.FromContext(ctx.Err())
	}
	return err
}

func (o *Orchestrator) fail(logger *slog.Logger, job *Job, warnings []string, err error) error {
	from := job.Status
	if advErr := job.Advance(constants.JobStatusFailed); advErr != nil {
		logger.Error("job state", "error", advErr)
	}
	logger.Error("job failed",
		"status", from,
		"code", common.CodeOf(err),
		"warnings", len(warnings),
		"error", err,
	)
	return &JobError{
		JobID:    job.ID,
		Status:   from,
		Warnings: warnings,
		History:  job.History,
		Err:      err,
	}
}
