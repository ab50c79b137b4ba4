package demographic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/telemetry"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.demographic")

const DefaultLinelistUrl = "https://api.covid19india.org/raw_data.json"

// ParseLinelist accepts either a bare array of cases or an object holding
// the array under "raw_data".
func ParseLinelist(body []byte) ([]Case, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty linelist")
	}

	if body[0] == '[' {
		var cases []Case
		err := json.Unmarshal(body, &cases)
		if err != nil {
			return nil, err
		}
		return cases, nil
	}

	var wrapped struct {
		RawData *[]Case `json:"raw_data"`
	}
	err := json.Unmarshal(body, &wrapped)
	if err != nil {
		return nil, err
	}
	if wrapped.RawData == nil {
		return nil, fmt.Errorf("linelist object has no raw_data array")
	}
	return *wrapped.RawData, nil
}

type LinelistOptions struct {
	Url     string
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

type LinelistFetcher struct {
	url  string
	http *resty.Client
}

func NewLinelistFetcher(opts LinelistOptions) LinelistFetcher {
	url := opts.Url
	if url == "" {
		url = DefaultLinelistUrl
	}
	return LinelistFetcher{
		url: url,
		http: restyutil.NewClient(restyutil.ClientOptions{
			Timeout:    opts.Timeout,
			TracerName: "incov.services.demographic/http",
			Output:     opts.Output,
		}),
	}
}

// Fetch downloads and parses the linelist. Every failure is a FetchError.
func (f LinelistFetcher) Fetch(ctx context.Context) ([]Case, error) {
	ctx, span := tracer.Start(ctx, "FetchLinelist")
	defer span.End()
	span.SetAttributes(attribute.String("url", f.url))

	res, err := f.http.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch linelist")
		return nil, &errs.FetchError{Source: f.url, Err: err}
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: f.url, Err: err}
	}

	cases, err := ParseLinelist(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse linelist")
		return nil, &errs.FetchError{Source: f.url, Err: err}
	}
	span.SetAttributes(attribute.Int("cases", len(cases)))
	return cases, nil
}

func EncodeProfile(w io.Writer, profile Profile) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(profile)
}

// WriteProfile writes demographic.json atomically.
func WriteProfile(path string, profile Profile) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return EncodeProfile(w, profile)
	})
}
