// Package pipeline runs an upload end to end: tabular files become an
// analysis workbook, documents become a slide deck, task lists become a task
// workbook. Every entry point is all-or-nothing: on error the artifact is nil.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaramelBytes/officeloom/internal/ai"
	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/apperrors"
	"github.com/KaramelBytes/officeloom/internal/config"
	"github.com/KaramelBytes/officeloom/internal/keypoints"
	"github.com/KaramelBytes/officeloom/internal/logging"
	"github.com/KaramelBytes/officeloom/internal/metrics"
	"github.com/KaramelBytes/officeloom/internal/parser"
	"github.com/KaramelBytes/officeloom/internal/report"
	"github.com/KaramelBytes/officeloom/internal/sysprobe"
	"github.com/KaramelBytes/officeloom/internal/tasks"
	"github.com/KaramelBytes/officeloom/internal/telemetry"
)

// Run kinds.
const (
	KindData     = "data"
	KindDocument = "document"
	KindTasks    = "tasks"
)

// Kind routes an upload by extension: tabular files are data, text files are
// documents. Unknown extensions return "".
func Kind(filename string) string {
	switch {
	case analysis.IsTabular(filename):
		return KindData
	case parser.IsDocument(filename):
		return KindDocument
	default:
		return ""
	}
}

// Options wires a Pipeline. Zero values fall back to defaults.
type Options struct {
	Config *config.Global
	Logger *slog.Logger
	// Prober supplies the runtime profile; nil uses the process-wide prober.
	Prober *sysprobe.Prober
	// Embedder enables embedding-ranked key points.
	Embedder ai.Embedder
	Metrics  *metrics.Recorder
	// Now stamps summaries; tests pin it.
	Now func() time.Time
}

// Pipeline holds the per-process collaborators. It is safe for sequential
// reuse; runs share only the read-only runtime profile.
type Pipeline struct {
	cfg       config.Global
	log       *slog.Logger
	profile   sysprobe.Profile
	embedder  ai.Embedder
	keypoints *keypoints.Extractor
	metrics   *metrics.Recorder
	tracer    trace.Tracer
	now       func() time.Time
}

// New builds a pipeline from opts.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	prober := opts.Prober
	if prober == nil {
		prober = sysprobe.Init(sysprobe.Config{CPUTarget: cfg.CPUTarget, EmbedModel: cfg.EmbedModel})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	p := &Pipeline{
		cfg:      *cfg,
		log:      log,
		profile:  prober.Profile(),
		embedder: opts.Embedder,
		metrics:  opts.Metrics,
		tracer:   telemetry.Tracer(),
		now:      now,
	}
	p.keypoints = keypoints.New(keypoints.Options{
		Embedder: opts.Embedder,
		Workers:  p.profile.WorkerThreads,
		Logger:   log,
	})
	return p
}

// Profile returns the runtime profile the pipeline was built with.
func (p *Pipeline) Profile() sysprobe.Profile { return p.profile }

// EmbedderFromConfig resolves cfg.EmbedModel. Unknown or broken identifiers
// are logged and yield no embedder, which leaves frequency ranking in charge.
func EmbedderFromConfig(cfg *config.Global, log *slog.Logger) ai.Embedder {
	if log == nil {
		log = logging.Discard()
	}
	emb, err := ai.Resolve(cfg.EmbedModel, ai.EmbedderConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		OllamaHost:  cfg.OllamaHost,
		Endpoint:    cfg.EmbedEndpoint,
		APIKey:      cfg.EmbedAPIKey,
	})
	if err != nil {
		log.Warn("embedding model unavailable, using frequency ranking", "embed_model", cfg.EmbedModel, "error", err)
		return nil
	}
	return emb
}

// run carries the per-invocation state shared by the stages.
type run struct {
	p     *Pipeline
	kind  string
	id    string
	ctx   context.Context
	span  trace.Span
	start time.Time
}

func (p *Pipeline) begin(ctx context.Context, kind, filename string) *run {
	id := uuid.NewString()
	ctx = logging.WithRunID(ctx, id)
	ctx, span := p.tracer.Start(ctx, "officeloom."+kind, trace.WithAttributes(
		attribute.String("run_id", id),
		attribute.String("filename", filepath.Base(filename)),
	))
	p.log.InfoContext(ctx, "run started", "kind", kind, "filename", filepath.Base(filename))
	return &run{p: p, kind: kind, id: id, ctx: ctx, span: span, start: time.Now()}
}

// stage times fn under its own span.
func (r *run) stage(name string, fn func(ctx context.Context) error) error {
	ctx, span := r.p.tracer.Start(r.ctx, name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	r.p.metrics.ObserveStage(name, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	r.p.log.DebugContext(ctx, "stage finished", "stage", name, "duration_ms", elapsed.Milliseconds(), "ok", err == nil)
	return err
}

func (r *run) finish(err error) {
	r.p.metrics.RunFinished(r.kind, err)
	elapsed := time.Since(r.start)
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		r.p.log.WarnContext(r.ctx, "run failed", "kind", r.kind, "code", apperrors.Code(err), "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		r.p.log.InfoContext(r.ctx, "run completed", "kind", r.kind, "duration_ms", elapsed.Milliseconds())
	}
	r.span.End()
}

func (p *Pipeline) stamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

func (p *Pipeline) workbookOptions() report.WorkbookOptions {
	return report.WorkbookOptions{SheetRowCap: p.cfg.SheetRowCap}
}

// ImportTasks normalizes an uploaded task list and renders the task workbook.
func (p *Pipeline) ImportTasks(ctx context.Context, data []byte, filename string) (tasks.Summary, *report.Artifact, error) {
	r := p.begin(ctx, KindTasks, filename)
	var (
		raw *analysis.RawTable
		imp *tasks.Import
		art *report.Artifact
	)
	err := r.stage("read_table", func(context.Context) error {
		var err error
		raw, err = analysis.ReadTable(data, filename)
		return err
	})
	if err == nil {
		err = r.stage("normalize_tasks", func(context.Context) error {
			var err error
			imp, err = tasks.Normalize(raw, p.now())
			return err
		})
	}
	if err == nil {
		err = r.stage("render_workbook", func(context.Context) error {
			var err error
			art, err = tasks.Render(imp, p.workbookOptions())
			return err
		})
	}
	r.finish(err)
	if err != nil {
		return tasks.Summary{}, nil, err
	}
	s := imp.Summary
	s.RunID = r.id
	s.Filename = filepath.Base(filename)
	return s, art, nil
}
