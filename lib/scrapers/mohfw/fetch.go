package mohfw

import (
	"context"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.lib.scrapers.mohfw")

const DefaultUrl = "https://www.mohfw.gov.in/"

type FetcherOptions struct {
	Url              string
	Timeout          time.Duration
	CloudflareBypass bool
	Output           restyutil.InstrumentOutput
}

type Fetcher struct {
	url  string
	http *resty.Client
}

func NewFetcher(opts FetcherOptions) Fetcher {
	url := opts.Url
	if url == "" {
		url = DefaultUrl
	}
	return Fetcher{
		url: url,
		http: restyutil.NewClient(restyutil.ClientOptions{
			Timeout:          opts.Timeout,
			TracerName:       "incov.lib.scrapers.mohfw/http",
			CloudflareBypass: opts.CloudflareBypass,
			Output:           opts.Output,
		}),
	}
}

// Fetch downloads the source page. Any transport error or non-2xx
// response is a FetchError.
func (f Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", f.url))

	res, err := f.http.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch source page")
		return nil, &errs.FetchError{Source: f.url, Err: err}
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: f.url, Err: err}
	}

	return res.Body(), nil
}

// Scrape fetches the page and extracts the state table from it.
func (f Fetcher) Scrape(ctx context.Context, sel Selector) ([]RegionRecord, error) {
	markup, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	records, err := Extract(markup, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract state table")
		return nil, err
	}
	span.SetAttributes(attribute.Int("regions", len(records)))
	return records, nil
}
