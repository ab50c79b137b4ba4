package restyutil

import (
	"context"
	"incov-backend/lib/telemetry"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	BaseUrl   string
	Timeout   time.Duration
	UserAgent string
	// name of the tracer spans are created under
	TracerName string
	// wraps the transport with a browser-like TLS/header profile, needed
	// for government sites sitting behind a bot wall.
	CloudflareBypass bool
	// when non-nil, every request/response pair is written to it while
	// debug logging is enabled.
	Output InstrumentOutput
}

// NewClient builds the resty client every fetcher in this repository uses.
func NewClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "resty"
	}
	telemetry.InstrumentResty(client, tracerName)
	DumpTo(client, opts.Output)

	return client
}

type InstrumentOutput interface {
	Write(id string, contents string)
}

type messageIdKey struct{}

// DumpTo writes every request/response exchanged by client to output
// while debug logging is enabled. A nil output makes this a no-op.
func DumpTo(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := req.Context()
		if !slog.Default().Enabled(ctx, slog.LevelDebug) {
			return nil
		}
		messageId := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		slog.DebugContext(
			ctx, "start request",
			"method", req.Method,
			"url", req.URL,
			"message_id", messageId,
		)
		req.SetContext(context.WithValue(ctx, messageIdKey{}, messageId))
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		messageId, ok := res.Request.Context().Value(messageIdKey{}).(string)
		if !ok {
			return nil
		}
		output.Write(messageId, formatHttpMessage(res))
		return nil
	})
}
