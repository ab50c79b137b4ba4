package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/testutil"
	"incov-backend/services/publish"
	"incov-backend/services/trend"
	"incov-backend/services/trend/db"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const gitBase = "/repos/incov/"

func upstream(t testing.TB, trendStatus int, extra ...map[string]http.HandlerFunc) *testutil.MockServer {
	page, err := os.ReadFile(filepath.Join("testdata", "source.html"))
	require.NoError(t, err)

	timeSeries := "Province/State,Country/Region,Lat,Long,3/24/20,3/25/20\n,India,0,0,500,657\n"
	linelist := `{"raw_data": [
		{"gender": "M", "agebracket": "45", "detectedstate": "Kerala", "currentstatus": "Hospitalized"},
		{"gender": "F", "agebracket": "25-34", "detectedstate": "Delhi", "currentstatus": "Recovered"}
	]}`

	routes := map[string]http.HandlerFunc{
		"GET /source":        testutil.Respond(http.StatusOK, "text/html", string(page)),
		"GET /confirmed.csv": testutil.Respond(trendStatus, "text/csv", timeSeries),
		"GET /raw_data.json": testutil.Respond(http.StatusOK, "application/json", linelist),
	}
	for _, repo := range []string{"ncov-19-india", "incov-report"} {
		base := gitBase + repo + "/git"
		routes["GET "+base+"/ref/heads/master"] = testutil.Respond(http.StatusOK, "application/json", `{"object": {"sha": "head"}}`)
		routes["GET "+base+"/commits/head"] = testutil.Respond(http.StatusOK, "application/json", `{"sha": "head", "tree": {"sha": "tree"}}`)
		routes["POST "+base+"/trees"] = testutil.Respond(http.StatusCreated, "application/json", `{"sha": "new-tree"}`)
		routes["POST "+base+"/commits"] = testutil.Respond(http.StatusCreated, "application/json", `{"sha": "new-commit"}`)
		routes["PATCH "+base+"/refs/heads/master"] = testutil.Respond(http.StatusOK, "application/json", `{"object": {"sha": "new-commit"}}`)
	}
	for _, more := range extra {
		for route, handler := range more {
			routes[route] = handler
		}
	}
	return testutil.NewMockServer(t, routes)
}

func testConfig(t testing.TB, server *testutil.MockServer) Config {
	dir := t.TempDir()
	return Config{
		DataDir:   filepath.Join(dir, "data"),
		ReportDir: dir,
		Source:    SourceConfig{Url: server.URL + "/source"},
		Report:    ReportConfig{Cname: "incov.example.com"},
		Trend: TrendConfig{
			Enabled: true,
			Series: []trend.SeriesConfig{
				{Name: trend.Confirmed, Source: trend.SourceCSV, Url: server.URL + "/confirmed.csv"},
				{Name: trend.Recovered, Source: trend.SourceSeed, Seed: map[string]int{"3/24/20": 10}},
			},
		},
		Demographic: DemographicConfig{
			Enabled:            true,
			Url:                server.URL + "/raw_data.json",
			CanonicalizeStates: true,
		},
		Publish: PublishConfig{
			Data:   publish.Config{ApiUrl: server.URL, Owner: "incov", Repo: "ncov-19-india"},
			Report: publish.Config{ApiUrl: server.URL, Owner: "incov", Repo: "incov-report"},
		},
	}
}

func newTestPipeline(t testing.TB, config Config) Pipeline {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/pipeline",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	p, err := New(config, Options{
		History: res.DB,
		Now:     func() time.Time { return time.Date(2020, 3, 25, 6, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return p
}

func stageNames(result Result) []string {
	names := make([]string, len(result.Stages))
	for i, s := range result.Stages {
		names[i] = s.Name
	}
	return names
}

func TestRun(t *testing.T) {
	server := upstream(t, http.StatusOK)
	config := testConfig(t, server)
	result := newTestPipeline(t, config).Run(context.Background())

	require.True(t, result.Success, "failed at %s", result.FailedStage)
	require.Empty(t, result.FailedStage)
	require.Len(t, result.RunID, 8)
	require.Equal(t, []string{
		StageFetch, StageExtract, StageMirror, StageCSV, StageReport, StageRender,
		StageTrend, StageDemographic, StagePublishData, StagePublishReport, StageNotify,
	}, stageNames(result))

	mirrorStage, _ := result.Stage(StageMirror)
	require.False(t, mirrorStage.Attempted)

	for _, name := range []string{"2020-03-25.csv", "report.json", "trend.json", "demographic.json"} {
		_, err := os.Stat(filepath.Join(config.DataDir, name))
		require.NoError(t, err, name)
	}
	cname, err := os.ReadFile(filepath.Join(config.ReportDir, "CNAME"))
	require.NoError(t, err)
	require.Equal(t, "incov.example.com\n", string(cname))

	trendJson, err := os.ReadFile(filepath.Join(config.DataDir, "trend.json"))
	require.NoError(t, err)
	var snapshot trend.Snapshot
	require.NoError(t, json.Unmarshal(trendJson, &snapshot))
	// 14 recovered in the source table
	require.Equal(t, trend.Series{{Date: "3/24/20", Value: 10}, {Date: "3/25/20", Value: 14}}, snapshot[trend.Recovered])

	var dataTree struct {
		Tree []struct {
			Path string `json:"path"`
		} `json:"tree"`
	}
	for _, req := range server.Requests() {
		if req.Method == http.MethodPost && req.Path == gitBase+"ncov-19-india/git/trees" {
			require.NoError(t, json.Unmarshal([]byte(req.Body), &dataTree))
		}
	}
	var paths []string
	for _, entry := range dataTree.Tree {
		paths = append(paths, entry.Path)
	}
	require.Equal(t, []string{
		"data/2020-03-25.csv",
		"data/report.json",
		"data/trend.json",
		"data/demographic.json",
	}, paths)
}

type commitTree struct {
	Tree []struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	} `json:"tree"`
}

func TestRunWithMirror(t *testing.T) {
	server := upstream(t, http.StatusOK, map[string]http.HandlerFunc{
		"GET /user": testutil.Respond(http.StatusOK, "application/json", `{"login": "incov"}`),
		"GET " + gitBase + "ncov-19-india/contents/data": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `[
				{"name": "2020-03-24.csv", "type": "file", "download_url": "http://%[1]s/raw/2020-03-24.csv"},
				{"name": "2020-03-25.csv", "type": "file", "download_url": "http://%[1]s/raw/2020-03-25.csv"}
			]`, r.Host)
		},
		"GET /raw/2020-03-24.csv": testutil.Respond(http.StatusOK, "text/csv", "mirrored\r\n"),
		"GET /raw/2020-03-25.csv": testutil.Respond(http.StatusOK, "text/csv", "stale\r\n"),
	})
	config := testConfig(t, server)
	config.Mirror.Enabled = true
	config.Publish.Data.Owner = ""
	config.Publish.Data.Token = "token"
	result := newTestPipeline(t, config).Run(context.Background())

	require.True(t, result.Success, "failed at %s", result.FailedStage)
	mirrorStage, _ := result.Stage(StageMirror)
	require.True(t, mirrorStage.Attempted)
	require.NoError(t, mirrorStage.Err)

	calls := server.Calls()
	require.Contains(t, calls, "GET /user")
	require.Contains(t, calls, "GET "+gitBase+"ncov-19-india/contents/data")

	mirrored, err := os.ReadFile(filepath.Join(config.DataDir, "2020-03-24.csv"))
	require.NoError(t, err)
	require.Equal(t, "mirrored\r\n", string(mirrored))

	// today's file is mirrored first and then rewritten from the source
	today, err := os.ReadFile(filepath.Join(config.DataDir, "2020-03-25.csv"))
	require.NoError(t, err)
	require.NotContains(t, string(today), "stale")
	require.Contains(t, string(today), "state/ut")

	var tree commitTree
	for _, req := range server.Requests() {
		if req.Method == http.MethodPost && req.Path == gitBase+"ncov-19-india/git/trees" {
			require.NoError(t, json.Unmarshal([]byte(req.Body), &tree))
		}
	}
	contents := map[string]string{}
	var paths []string
	for _, entry := range tree.Tree {
		paths = append(paths, entry.Path)
		contents[entry.Path] = entry.Content
	}
	require.Equal(t, []string{
		"data/2020-03-24.csv",
		"data/2020-03-25.csv",
		"data/report.json",
		"data/trend.json",
		"data/demographic.json",
	}, paths)
	require.Equal(t, "mirrored\r\n", contents["data/2020-03-24.csv"])
	require.Equal(t, string(today), contents["data/2020-03-25.csv"])
}

func TestRunContinuesAfterTrendFailure(t *testing.T) {
	server := upstream(t, http.StatusBadGateway)
	config := testConfig(t, server)
	result := newTestPipeline(t, config).Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StageTrend, result.FailedStage)

	trendStage, _ := result.Stage(StageTrend)
	var fetchErr *errs.FetchError
	require.True(t, errors.As(trendStage.Err, &fetchErr))

	demographicStage, _ := result.Stage(StageDemographic)
	require.True(t, demographicStage.Attempted)
	require.NoError(t, demographicStage.Err)

	publishStage, _ := result.Stage(StagePublishData)
	require.True(t, publishStage.Attempted)
	require.NoError(t, publishStage.Err)

	_, err := os.Stat(filepath.Join(config.DataDir, "trend.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(config.DataDir, "demographic.json"))
	require.NoError(t, err)
}

func TestRunSourceDown(t *testing.T) {
	server := upstream(t, http.StatusOK)
	config := testConfig(t, server)
	config.Source.Url = server.URL + "/missing"
	result := newTestPipeline(t, config).Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StageFetch, result.FailedStage)

	for _, name := range []string{StageExtract, StageCSV, StageReport, StageRender, StagePublishReport} {
		stage, ok := result.Stage(name)
		require.True(t, ok)
		require.False(t, stage.Attempted, name)
	}

	// the seeded series has no value for today, the downloaded ones do
	trendStage, _ := result.Stage(StageTrend)
	require.True(t, trendStage.Attempted)
	require.Error(t, trendStage.Err)

	demographicStage, _ := result.Stage(StageDemographic)
	require.NoError(t, demographicStage.Err)

	publishStage, _ := result.Stage(StagePublishData)
	require.True(t, publishStage.Attempted)
}

func TestRunPublishFailureIsIndependent(t *testing.T) {
	server := upstream(t, http.StatusOK)
	config := testConfig(t, server)
	config.Publish.Data.Repo = "unknown-repo"
	result := newTestPipeline(t, config).Run(context.Background())

	require.False(t, result.Success)
	require.Equal(t, StagePublishData, result.FailedStage)

	publishData, _ := result.Stage(StagePublishData)
	var publishErr *errs.PublishError
	require.True(t, errors.As(publishData.Err, &publishErr))

	publishReport, _ := result.Stage(StagePublishReport)
	require.True(t, publishReport.Attempted)
	require.NoError(t, publishReport.Err)
}

func TestNewRequiresHistory(t *testing.T) {
	_, err := New(Config{Trend: TrendConfig{Enabled: true}}, Options{})
	require.Error(t, err)
}

func TestNewRejectsCollidingColumns(t *testing.T) {
	selector := mohfw.DefaultSelector()
	selector.Columns.ConfirmedForeign = 0
	selector.Columns.Region = 0
	_, err := New(Config{Source: SourceConfig{Selector: &selector}}, Options{})
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	config := Config{
		Publish: PublishConfig{Data: publish.Config{Owner: "incov", Repo: "ncov-19-india", Token: "t"}},
	}.WithDefaults()

	require.Equal(t, "data", config.DataDir)
	require.Equal(t, "ncov-19-india", config.Mirror.Repo.Repo)
	require.Equal(t, "t", config.Mirror.Repo.Token)
	require.Equal(t, "REPORT AUTO UPDATE :bug:", config.Publish.Report.Message)
	require.Len(t, config.Trend.Series, 3)
	require.Equal(t, filepath.Join("data", ".history.db"), config.Trend.History.File)
	require.Equal(t, 30*time.Second, config.Timeout())
}
