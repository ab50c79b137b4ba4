package mirror

import (
	"context"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/telemetry"
	"incov-backend/services/publish"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.mirror")

type Config struct {
	ApiUrl string `json:"api_url"`
	// resolved from the token when empty
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	// directory of the repository that is listed
	Path  string `json:"path"`
	Token string `json:"token" env:"GHTOKEN"`
}

type Options struct {
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

// Mirror pulls the csv files already published to the data repository back
// into the local data directory, so that a fresh checkout publishes the
// complete history.
type Mirror struct {
	config Config
	http   *resty.Client
	// download urls point at hosts other than the api, they never get the
	// token
	raw    *resty.Client
}

func NewMirror(config Config, opts Options) Mirror {
	if config.ApiUrl == "" {
		config.ApiUrl = "https://api.github.com"
	}
	if config.Branch == "" {
		config.Branch = "master"
	}
	if config.Path == "" {
		config.Path = "data"
	}

	client := restyutil.NewClient(restyutil.ClientOptions{
		BaseUrl:    strings.TrimSuffix(config.ApiUrl, "/"),
		Timeout:    opts.Timeout,
		TracerName: "incov.services.mirror/http",
		Output:     opts.Output,
	})
	client.SetHeader("accept", "application/vnd.github+json")
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}

	raw := restyutil.NewClient(restyutil.ClientOptions{
		Timeout:    opts.Timeout,
		TracerName: "incov.services.mirror/download",
		Output:     opts.Output,
	})

	return Mirror{config: config, http: client, raw: raw}
}

type contentEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadUrl string `json:"download_url"`
}

func (m Mirror) listingUrl(owner string) string {
	return fmt.Sprintf(
		"/repos/%s/%s/contents/%s",
		owner, m.config.Repo, strings.Trim(m.config.Path, "/"),
	)
}

// Sync writes every csv listed in the repository directory into dir and
// returns the names written. Files in dir that are not listed are kept.
func (m Mirror) Sync(ctx context.Context, dir string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	owner, err := publish.ResolveOwner(ctx, m.http, m.config.Owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve owner")
		return nil, &errs.FetchError{Source: m.config.Repo, Err: err}
	}

	listing := m.listingUrl(owner)
	span.SetAttributes(attribute.String("listing", listing))

	var entries []contentEntry
	res, err := m.http.R().
		SetContext(ctx).
		SetQueryParam("ref", m.config.Branch).
		SetResult(&entries).
		Get(listing)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list mirror")
		return nil, &errs.FetchError{Source: listing, Err: err}
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return nil, &errs.FetchError{Source: listing, Err: err}
	}

	var written []string
	for _, entry := range entries {
		if entry.Type != "file" || !strings.HasSuffix(entry.Name, ".csv") || entry.DownloadUrl == "" {
			continue
		}
		// names come from a remote listing, never let them escape dir
		name := filepath.Base(entry.Name)

		err := m.download(ctx, entry.DownloadUrl, filepath.Join(dir, name))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to download mirrored file")
			return written, err
		}
		written = append(written, name)
	}

	span.SetAttributes(attribute.Int("files", len(written)))
	slog.InfoContext(ctx, "mirrored data files", "count", len(written), "dir", dir)
	return written, nil
}

func (m Mirror) download(ctx context.Context, url, path string) error {
	res, err := m.raw.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return &errs.FetchError{Source: url, Err: err}
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return &errs.FetchError{Source: url, Err: fmt.Errorf("unexpected status %s", res.Status())}
	}

	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, body)
		if err != nil {
			return &errs.FetchError{Source: url, Err: err}
		}
		return nil
	})
}
