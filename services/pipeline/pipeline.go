package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/telemetry"
	"incov-backend/lib/timezone"
	"incov-backend/services/demographic"
	"incov-backend/services/mirror"
	"incov-backend/services/notify"
	"incov-backend/services/publish"
	"incov-backend/services/report"
	"incov-backend/services/trend"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.pipeline")

const (
	StageFetch         = "fetch"
	StageExtract       = "extract"
	StageMirror        = "mirror"
	StageCSV           = "csv"
	StageReport        = "report"
	StageRender        = "render"
	StageTrend         = "trend"
	StageDemographic   = "demographic"
	StagePublishData   = "publish-data"
	StagePublishReport = "publish-report"
	StageNotify        = "notify"
)

type StageResult = notify.StageResult

type Result struct {
	RunID       string
	Stages      []StageResult
	Success     bool
	FailedStage string
	Stats       telemetry.RunStats
}

func (r Result) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

type Options struct {
	// history database of the trend builder, required when trend is enabled
	History *sql.DB
	// defaults to timezone.Now
	Now    func() time.Time
	Output restyutil.InstrumentOutput
}

type Pipeline struct {
	config   Config
	selector mohfw.Selector
	now      func() time.Time

	fetcher         mohfw.Fetcher
	mirror          mirror.Mirror
	trend           trend.Builder
	linelist        demographic.LinelistFetcher
	dataPublisher   publish.Publisher
	reportPublisher publish.Publisher
	notifier        notify.Notifier
}

func New(config Config, opts Options) (Pipeline, error) {
	config = config.WithDefaults()
	if config.Trend.Enabled && opts.History == nil {
		return Pipeline{}, fmt.Errorf("trend is enabled but no history database was given")
	}
	err := config.Selector().Columns.Validate()
	if err != nil {
		return Pipeline{}, fmt.Errorf("source selector: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	timeout := config.Timeout()

	p := Pipeline{
		config:   config,
		selector: config.Selector(),
		now:      now,
		fetcher: mohfw.NewFetcher(mohfw.FetcherOptions{
			Url:              config.Source.Url,
			Timeout:          timeout,
			CloudflareBypass: config.Source.CloudflareBypass,
			Output:           opts.Output,
		}),
		mirror: mirror.NewMirror(config.Mirror.Repo, mirror.Options{
			Timeout: timeout,
			Output:  opts.Output,
		}),
		linelist: demographic.NewLinelistFetcher(demographic.LinelistOptions{
			Url:     config.Demographic.Url,
			Timeout: timeout,
			Output:  opts.Output,
		}),
		dataPublisher: publish.NewPublisher(config.Publish.Data, publish.Options{
			Timeout: timeout,
			Output:  opts.Output,
		}),
		reportPublisher: publish.NewPublisher(config.Publish.Report, publish.Options{
			Timeout: timeout,
			Output:  opts.Output,
		}),
		notifier: notify.NewNotifier(config.Notify),
	}
	if config.Trend.Enabled {
		p.trend = trend.NewBuilder(trend.BuilderOptions{
			Country: config.Trend.Country,
			Series:  config.Trend.Series,
			Timeout: timeout,
			Output:  opts.Output,
			Now:     now,
		}, trend.NewHistoryStore(opts.History))
	}
	return p, nil
}

// run carries the state of one invocation between stages.
type run struct {
	result  Result
	now     time.Time
	markup  []byte
	records []mohfw.RegionRecord
	summary report.Summary
	// json artifacts written by this run, published with the csv files
	artifacts []string
	csvOk     bool
	rendered  bool
}

func (p Pipeline) stage(ctx context.Context, r *run, name string, fn func(ctx context.Context) error) bool {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	result := StageResult{
		Name:      name,
		Attempted: true,
		Err:       err,
		Duration:  time.Since(started),
	}
	r.result.Stages = append(r.result.Stages, result)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(
			ctx, "stage failed",
			"run", r.result.RunID,
			"stage", name,
			"kind", errs.Kind(err),
			"err", err,
		)
		return false
	}
	slog.InfoContext(
		ctx, "stage complete",
		"run", r.result.RunID,
		"stage", name,
		"duration", result.Duration,
	)
	return true
}

func (p Pipeline) skip(ctx context.Context, r *run, name, reason string) {
	r.result.Stages = append(r.result.Stages, StageResult{Name: name})
	slog.InfoContext(ctx, "stage skipped", "run", r.result.RunID, "stage", name, "reason", reason)
}

func newRunID() string {
	id, err := random.String(8)
	if err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return id
}

// Run executes every stage once, in order. A stage whose input is missing
// is skipped, every other stage still runs. The run succeeds when every
// attempted stage before notify succeeded.
func (p Pipeline) Run(ctx context.Context) Result {
	started := time.Now()
	r := &run{
		result: Result{RunID: newRunID()},
		now:    p.now(),
	}

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", r.result.RunID))
	slog.InfoContext(ctx, "starting run", "run", r.result.RunID, "source", p.config.Source.Url)

	p.stage(ctx, r, StageFetch, func(ctx context.Context) error {
		markup, err := p.fetcher.Fetch(ctx)
		r.markup = markup
		return err
	})

	if r.markup != nil {
		p.stage(ctx, r, StageExtract, func(ctx context.Context) error {
			records, err := mohfw.Extract(r.markup, p.selector)
			if err != nil {
				return err
			}
			r.records = records
			r.summary = report.Summarize(records, r.now)
			return nil
		})
	} else {
		p.skip(ctx, r, StageExtract, "nothing fetched")
	}

	if p.config.Mirror.Enabled {
		p.stage(ctx, r, StageMirror, func(ctx context.Context) error {
			_, err := p.mirror.Sync(ctx, p.config.DataDir)
			return err
		})
	} else {
		p.skip(ctx, r, StageMirror, "disabled")
	}

	if r.records != nil {
		layout := report.LayoutFor(p.selector.Columns)
		r.csvOk = p.stage(ctx, r, StageCSV, func(ctx context.Context) error {
			_, err := report.WriteCSV(p.config.DataDir, r.now, layout, r.records)
			return err
		})
		p.stage(ctx, r, StageReport, func(ctx context.Context) error {
			err := report.WriteReport(p.config.ReportPath(), r.records, r.summary)
			if err != nil {
				return err
			}
			r.artifacts = append(r.artifacts, p.config.ReportPath())
			return nil
		})
		r.rendered = p.stage(ctx, r, StageRender, p.render(r))
	} else {
		p.skip(ctx, r, StageCSV, "no state records")
		p.skip(ctx, r, StageReport, "no state records")
		p.skip(ctx, r, StageRender, "no state records")
	}

	if p.config.Trend.Enabled {
		p.stage(ctx, r, StageTrend, func(ctx context.Context) error {
			snapshot, err := p.trend.Build(ctx, r.records)
			if err != nil {
				return err
			}
			err = trend.WriteTrend(p.config.TrendPath(), snapshot)
			if err != nil {
				return err
			}
			r.artifacts = append(r.artifacts, p.config.TrendPath())
			return nil
		})
	} else {
		p.skip(ctx, r, StageTrend, "disabled")
	}

	if p.config.Demographic.Enabled {
		p.stage(ctx, r, StageDemographic, func(ctx context.Context) error {
			cases, err := p.linelist.Fetch(ctx)
			if err != nil {
				return err
			}
			profile := demographic.Build(cases)
			if p.config.Demographic.CanonicalizeStates {
				profile = demographic.CanonicalizeStates(profile, regionNames(r.records))
			}
			err = demographic.WriteProfile(p.config.DemographicPath(), profile)
			if err != nil {
				return err
			}
			r.artifacts = append(r.artifacts, p.config.DemographicPath())
			return nil
		})
	} else {
		p.skip(ctx, r, StageDemographic, "disabled")
	}

	switch {
	case p.config.Publish.Data.Repo == "":
		p.skip(ctx, r, StagePublishData, "disabled")
	case !r.csvOk && len(r.artifacts) == 0:
		p.skip(ctx, r, StagePublishData, "nothing produced")
	default:
		p.stage(ctx, r, StagePublishData, func(ctx context.Context) error {
			files, err := publish.DataFiles(p.config.DataDir, "data", r.artifacts...)
			if err != nil {
				return &errs.PublishError{Repo: p.config.Publish.Data.Repo, Err: err}
			}
			return p.dataPublisher.Commit(ctx, files, "")
		})
	}

	switch {
	case p.config.Publish.Report.Repo == "":
		p.skip(ctx, r, StagePublishReport, "disabled")
	case !r.rendered:
		p.skip(ctx, r, StagePublishReport, "report not rendered")
	default:
		p.stage(ctx, r, StagePublishReport, func(ctx context.Context) error {
			locals := []string{p.config.HtmlPath()}
			if _, err := os.Stat(p.config.CnamePath()); err == nil {
				locals = append(locals, p.config.CnamePath())
			}
			return p.reportPublisher.Commit(ctx, publish.RootFiles(locals...), "")
		})
	}

	r.result.Success = true
	for _, s := range r.result.Stages {
		if s.Attempted && s.Err != nil {
			r.result.Success = false
			r.result.FailedStage = s.Name
			break
		}
	}
	span.SetAttributes(attribute.Bool("success", r.result.Success))
	if !r.result.Success {
		span.SetStatus(codes.Error, "stage "+r.result.FailedStage+" failed")
	}

	if p.notifier.Enabled() {
		status := notify.Status{
			RunID:       r.result.RunID,
			Success:     r.result.Success,
			FailedStage: r.result.FailedStage,
			Stages:      r.result.Stages,
			Finished:    p.now(),
		}
		p.stage(ctx, r, StageNotify, func(ctx context.Context) error {
			return p.notifier.Notify(ctx, status)
		})
	} else {
		p.skip(ctx, r, StageNotify, "no recipient")
	}

	r.result.Stats = telemetry.RecordRunStats(ctx, started)
	slog.InfoContext(
		ctx, "run finished",
		"run", r.result.RunID,
		"success", r.result.Success,
		"failed_stage", r.result.FailedStage,
		"elapsed", r.result.Stats.Elapsed,
		"cpu_percent", r.result.Stats.CPUPercent,
		"rss_bytes", r.result.Stats.RSSBytes,
	)
	return r.result
}

func (p Pipeline) render(r *run) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		tmpl, err := report.LoadTemplate(p.config.Report.Template)
		if err != nil {
			return err
		}
		err = report.WriteHTML(p.config.HtmlPath(), tmpl, r.records, r.summary)
		if err != nil {
			return err
		}
		if p.config.Report.Cname == "" {
			return nil
		}
		return fsutil.WriteAtomic(p.config.CnamePath(), func(w io.Writer) error {
			_, err := io.WriteString(w, p.config.Report.Cname+"\n")
			return err
		})
	}
}

func regionNames(records []mohfw.RegionRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Region
	}
	return names
}
