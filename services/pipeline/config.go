package pipeline

import (
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/services/mirror"
	"incov-backend/services/notify"
	"incov-backend/services/publish"
	"incov-backend/services/trend"
	"path/filepath"
	"time"
)

type SourceConfig struct {
	Url              string `json:"url"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	// the default selector is used when omitted
	Selector *mohfw.Selector `json:"selector"`
}

type ReportConfig struct {
	// html template, the embedded one is used when empty
	Template string `json:"template"`
	// custom domain written to the CNAME file of the report repository
	Cname string `json:"cname"`
}

type MirrorConfig struct {
	Enabled bool          `json:"enabled"`
	Repo    mirror.Config `json:"repo"`
}

type TrendConfig struct {
	Enabled bool                 `json:"enabled"`
	Country string               `json:"country"`
	Series  []trend.SeriesConfig `json:"series"`
	// seed of the locally accumulated RECOVERED series when Series is empty
	RecoveredSeed map[string]int      `json:"recovered_seed"`
	History       trend.HistoryConfig `json:"history"`
}

type DemographicConfig struct {
	Enabled  bool   `json:"enabled"`
	Url      string `json:"url"`
	// fold linelist state names onto the scraped region names
	CanonicalizeStates bool `json:"canonicalize_states"`
}

type PublishConfig struct {
	Data   publish.Config `json:"data"`
	Report publish.Config `json:"report"`
}

type Config struct {
	// holds the dated csv files and the json artifacts
	DataDir string `json:"data_dir"`
	// holds index.html and CNAME
	ReportDir string `json:"report_dir"`
	// per request timeout of every http client, in seconds
	TimeoutSeconds int `json:"timeout_seconds"`
	// when set, every http exchange is dumped into this directory while
	// debug logging is on
	HttpDumpDir string `json:"http_dump_dir"`
	// appended to by every run
	LogFile string `json:"log_file"`

	Source      SourceConfig      `json:"source"`
	Report      ReportConfig      `json:"report"`
	Mirror      MirrorConfig      `json:"mirror"`
	Trend       TrendConfig       `json:"trend"`
	Demographic DemographicConfig `json:"demographic"`
	Publish     PublishConfig     `json:"publish"`
	Notify      notify.Config     `json:"notify"`
}

// WithDefaults fills every unset field that has a sensible default.
func (c Config) WithDefaults() Config {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.ReportDir == "" {
		c.ReportDir = "."
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.Source.Url == "" {
		c.Source.Url = mohfw.DefaultUrl
	}
	if c.Trend.Country == "" {
		c.Trend.Country = "India"
	}
	if len(c.Trend.Series) == 0 {
		c.Trend.Series = trend.DefaultSeries(c.Trend.RecoveredSeed)
	}
	if c.Trend.History.File == "" && c.Trend.History.Url == "" {
		c.Trend.History.File = filepath.Join(c.DataDir, ".history.db")
	}
	if c.Publish.Data.Message == "" {
		c.Publish.Data.Message = "AUTO UPDATE :bug:"
	}
	if c.Publish.Report.Message == "" {
		c.Publish.Report.Message = "REPORT AUTO UPDATE :bug:"
	}

	// the mirror reads back what the data publisher writes unless told
	// otherwise
	data := c.Publish.Data
	if c.Mirror.Repo.Repo == "" {
		c.Mirror.Repo.Repo = data.Repo
	}
	if c.Mirror.Repo.Owner == "" {
		c.Mirror.Repo.Owner = data.Owner
	}
	if c.Mirror.Repo.Branch == "" {
		c.Mirror.Repo.Branch = data.Branch
	}
	if c.Mirror.Repo.ApiUrl == "" {
		c.Mirror.Repo.ApiUrl = data.ApiUrl
	}
	if c.Mirror.Repo.Token == "" {
		c.Mirror.Repo.Token = data.Token
	}
	return c
}

func (c Config) Selector() mohfw.Selector {
	if c.Source.Selector == nil {
		return mohfw.DefaultSelector()
	}
	return *c.Source.Selector
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) ReportPath() string      { return filepath.Join(c.DataDir, "report.json") }
func (c Config) TrendPath() string       { return filepath.Join(c.DataDir, "trend.json") }
func (c Config) DemographicPath() string { return filepath.Join(c.DataDir, "demographic.json") }
func (c Config) HtmlPath() string        { return filepath.Join(c.ReportDir, "index.html") }
func (c Config) CnamePath() string       { return filepath.Join(c.ReportDir, "CNAME") }
