package trend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/telemetry"
	"incov-backend/lib/timezone"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.trend")

const (
	SourceCSV  = "csv"
	SourceSeed = "seed"
)

const timeSeriesBase = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"

type SeriesConfig struct {
	Name SeriesName `json:"name"`
	// "csv" downloads Url, "seed" accumulates one point per run on top of Seed
	Source string         `json:"source"`
	Url    string         `json:"url"`
	Seed   map[string]int `json:"seed"`
}

// DefaultSeries downloads CONFIRMED and DEATHS and accumulates RECOVERED
// locally from seed.
func DefaultSeries(seed map[string]int) []SeriesConfig {
	return []SeriesConfig{
		{Name: Confirmed, Source: SourceCSV, Url: timeSeriesBase + "time_series_covid19_confirmed_global.csv"},
		{Name: Deaths, Source: SourceCSV, Url: timeSeriesBase + "time_series_covid19_deaths_global.csv"},
		{Name: Recovered, Source: SourceSeed, Seed: seed},
	}
}

type BuilderOptions struct {
	Country string
	Series  []SeriesConfig
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
	// defaults to timezone.Now
	Now func() time.Time
}

type Builder struct {
	country string
	series  []SeriesConfig
	now     func() time.Time
	http    *resty.Client
	store   HistoryStore
}

func NewBuilder(opts BuilderOptions, store HistoryStore) Builder {
	country := opts.Country
	if country == "" {
		country = "India"
	}
	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	return Builder{
		country: country,
		series:  opts.Series,
		now:     now,
		store:   store,
		http: restyutil.NewClient(restyutil.ClientOptions{
			Timeout:    opts.Timeout,
			TracerName: "incov.services.trend/http",
			Output:     opts.Output,
		}),
	}
}

// Build assembles every configured series. A series that fails is left
// out of the snapshot and its error joined into the returned error, the
// remaining series are still built. records may be nil when the state
// table could not be scraped, seeded series then fail.
func (b Builder) Build(ctx context.Context, records []mohfw.RegionRecord) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Build")
	defer span.End()

	snapshot := Snapshot{}
	var failures []error
	for _, cfg := range b.series {
		series, err := b.buildSeries(ctx, cfg, records)
		if err != nil {
			slog.WarnContext(ctx, "failed to build series", "series", cfg.Name, "err", err)
			failures = append(failures, fmt.Errorf("series %s: %w", cfg.Name, err))
			continue
		}
		snapshot[cfg.Name] = series
	}

	err := errors.Join(failures...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build every series")
	}
	return snapshot, err
}

func (b Builder) buildSeries(ctx context.Context, cfg SeriesConfig, records []mohfw.RegionRecord) (Series, error) {
	switch cfg.Source {
	case SourceCSV:
		return b.downloadSeries(ctx, cfg)
	case SourceSeed:
		return b.accumulateSeries(ctx, cfg, records)
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func (b Builder) downloadSeries(ctx context.Context, cfg SeriesConfig) (Series, error) {
	ctx, span := tracer.Start(ctx, "DownloadSeries")
	defer span.End()
	span.SetAttributes(
		attribute.String("series", string(cfg.Name)),
		attribute.String("url", cfg.Url),
	)

	res, err := b.http.R().
		SetContext(ctx).
		Get(cfg.Url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: cfg.Url, Err: err}
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: cfg.Url, Err: err}
	}

	series, err := ParseTimeSeries(res.Body(), b.country)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: cfg.Url, Err: err}
	}
	span.SetAttributes(attribute.Int("points", len(series)))
	return series, nil
}

func (b Builder) accumulateSeries(ctx context.Context, cfg SeriesConfig, records []mohfw.RegionRecord) (Series, error) {
	ctx, span := tracer.Start(ctx, "AccumulateSeries")
	defer span.End()
	span.SetAttributes(attribute.String("series", string(cfg.Name)))

	if records == nil {
		err := fmt.Errorf("no state records to compute today's value from")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	seed, err := SeriesFromMap(cfg.Seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	err = b.store.Seed(ctx, cfg.Name, seed)
	if err != nil {
		return nil, err
	}

	today := todayValue(cfg.Name, records)
	err = b.store.Put(ctx, cfg.Name, b.now(), today)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("today", today))

	return b.store.Series(ctx, cfg.Name)
}

func todayValue(name SeriesName, records []mohfw.RegionRecord) int {
	total := 0
	for _, r := range records {
		switch name {
		case Confirmed:
			total += r.Confirmed()
		case Deaths:
			total += r.Deaths
		default:
			total += r.Recovered
		}
	}
	return total
}

func EncodeTrend(w io.Writer, snapshot Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(snapshot)
}

// WriteTrend writes trend.json atomically.
func WriteTrend(path string, snapshot Snapshot) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return EncodeTrend(w, snapshot)
	})
}
