package publish

import (
	"context"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/telemetry"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.publish")

const DefaultApiUrl = "https://api.github.com"

type Config struct {
	ApiUrl string `json:"api_url"`
	// resolved from the token when empty
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	// default commit message
	Message string `json:"message"`
	Token   string `json:"token" env:"GHTOKEN"`
}

// File maps a local file onto its path in the repository.
type File struct {
	Local  string
	Remote string
}

type Options struct {
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

// Publisher commits sets of files to one repository branch through the
// git data API, one commit per call.
type Publisher struct {
	config Config
	http   *resty.Client
}

func NewPublisher(config Config, opts Options) Publisher {
	if config.ApiUrl == "" {
		config.ApiUrl = DefaultApiUrl
	}
	if config.Branch == "" {
		config.Branch = "master"
	}
	if config.Message == "" {
		config.Message = "AUTO UPDATE :bug:"
	}

	client := restyutil.NewClient(restyutil.ClientOptions{
		BaseUrl:    strings.TrimSuffix(config.ApiUrl, "/"),
		Timeout:    opts.Timeout,
		TracerName: "incov.services.publish/http",
		Output:     opts.Output,
	})
	client.SetHeader("accept", "application/vnd.github+json")
	client.SetHeader("x-github-api-version", "2022-11-28")
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}

	return Publisher{
		config: config,
		http:   client,
	}
}

func (p Publisher) Repo() string {
	return p.config.Repo
}

type refResponse struct {
	Object struct {
		Sha string `json:"sha"`
	} `json:"object"`
}

type commitResponse struct {
	Sha  string `json:"sha"`
	Tree struct {
		Sha string `json:"sha"`
	} `json:"tree"`
}

type shaResponse struct {
	Sha string `json:"sha"`
}

type treeEntry struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type createTreeRequest struct {
	BaseTree string      `json:"base_tree"`
	Tree     []treeEntry `json:"tree"`
}

type createCommitRequest struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

type updateRefRequest struct {
	Sha   string `json:"sha"`
	Force bool   `json:"force"`
}

func (p Publisher) fail(err error) error {
	return &errs.PublishError{Repo: p.config.Repo, Err: err}
}

func (p Publisher) call(ctx context.Context, method, path string, body, result any) error {
	req := p.http.R().
		SetContext(ctx).
		SetResult(result)
	if body != nil {
		req.SetBody(body)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: unexpected status %s: %s", method, path, res.Status(), strings.TrimSpace(res.String()))
	}
	return nil
}

func (p Publisher) owner(ctx context.Context) (string, error) {
	return ResolveOwner(ctx, p.http, p.config.Owner)
}

// Commit reads files and commits them on top of the branch head in a single
// commit. The rest of the tree is left as it is. An empty message falls
// back to the configured one.
func (p Publisher) Commit(ctx context.Context, files []File, message string) error {
	ctx, span := tracer.Start(ctx, "Commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("repo", p.config.Repo),
		attribute.String("branch", p.config.Branch),
		attribute.Int("files", len(files)),
	)

	if message == "" {
		message = p.config.Message
	}
	err := p.commit(ctx, files, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return p.fail(err)
	}
	return nil
}

func (p Publisher) commit(ctx context.Context, files []File, message string) error {
	if p.config.Repo == "" {
		return fmt.Errorf("no repository configured")
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to commit")
	}

	entries := make([]treeEntry, len(files))
	for i, f := range files {
		content, err := os.ReadFile(f.Local)
		if err != nil {
			return err
		}
		entries[i] = treeEntry{
			Path:    f.Remote,
			Mode:    "100644",
			Type:    "blob",
			Content: string(content),
		}
	}

	owner, err := p.owner(ctx)
	if err != nil {
		return err
	}
	base := fmt.Sprintf("/repos/%s/%s/git", owner, p.config.Repo)

	var ref refResponse
	err = p.call(ctx, resty.MethodGet, base+"/ref/heads/"+p.config.Branch, nil, &ref)
	if err != nil {
		return err
	}
	head := ref.Object.Sha

	var parent commitResponse
	err = p.call(ctx, resty.MethodGet, base+"/commits/"+head, nil, &parent)
	if err != nil {
		return err
	}

	var tree shaResponse
	err = p.call(ctx, resty.MethodPost, base+"/trees", createTreeRequest{
		BaseTree: parent.Tree.Sha,
		Tree:     entries,
	}, &tree)
	if err != nil {
		return err
	}

	var commit shaResponse
	err = p.call(ctx, resty.MethodPost, base+"/commits", createCommitRequest{
		Message: message,
		Tree:    tree.Sha,
		Parents: []string{head},
	}, &commit)
	if err != nil {
		return err
	}

	err = p.call(ctx, resty.MethodPatch, base+"/refs/heads/"+p.config.Branch, updateRefRequest{
		Sha: commit.Sha,
	}, &shaResponse{})
	if err != nil {
		return err
	}

	slog.InfoContext(
		ctx, "committed files",
		"repo", p.config.Repo,
		"branch", p.config.Branch,
		"commit", commit.Sha,
		"files", len(files),
	)
	return nil
}
