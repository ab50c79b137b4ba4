package mirror

import (
	"context"
	"errors"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/testutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	var server *testutil.MockServer
	server = testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /repos/incov/ncov-19-india/contents/data": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `[
				{"name": "2020-03-24.csv", "type": "file", "download_url": "%[1]s/raw/2020-03-24.csv"},
				{"name": "report.json", "type": "file", "download_url": "%[1]s/raw/report.json"},
				{"name": "archive", "type": "dir", "download_url": null}
			]`, server.URL)
		},
		"GET /raw/2020-03-24.csv": testutil.Respond(http.StatusOK, "text/csv", "state/ut\r\nKerala\r\n"),
	})

	mirror := NewMirror(Config{
		ApiUrl: server.URL,
		Owner:  "incov",
		Repo:   "ncov-19-india",
	}, Options{})

	dir := t.TempDir()
	written, err := mirror.Sync(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []string{"2020-03-24.csv"}, written)

	content, err := os.ReadFile(filepath.Join(dir, "2020-03-24.csv"))
	require.NoError(t, err)
	require.Equal(t, "state/ut\r\nKerala\r\n", string(content))

	requests := server.Requests()
	require.Equal(t, "ref=master", requests[0].Query)
	require.Equal(t, []string{
		"GET /repos/incov/ncov-19-india/contents/data",
		"GET /raw/2020-03-24.csv",
	}, server.Calls())
}

func TestSyncListingFailure(t *testing.T) {
	server := testutil.NewMockServer(t, map[string]http.HandlerFunc{})
	mirror := NewMirror(Config{ApiUrl: server.URL, Owner: "incov", Repo: "ncov-19-india"}, Options{})

	_, err := mirror.Sync(context.Background(), t.TempDir())
	var fetchErr *errs.FetchError
	require.True(t, errors.As(err, &fetchErr))
}

func TestSyncDownloadFailure(t *testing.T) {
	var server *testutil.MockServer
	server = testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /repos/incov/ncov-19-india/contents/data": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `[{"name": "2020-03-24.csv", "type": "file", "download_url": "%s/raw/gone.csv"}]`, server.URL)
		},
	})
	mirror := NewMirror(Config{ApiUrl: server.URL, Owner: "incov", Repo: "ncov-19-india"}, Options{})

	dir := t.TempDir()
	_, err := mirror.Sync(context.Background(), dir)
	var fetchErr *errs.FetchError
	require.True(t, errors.As(err, &fetchErr))

	_, statErr := os.Stat(filepath.Join(dir, "2020-03-24.csv"))
	require.True(t, os.IsNotExist(statErr))
}

func TestSyncResolvesOwnerFromToken(t *testing.T) {
	var server *testutil.MockServer
	server = testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /user": testutil.Respond(http.StatusOK, "application/json", `{"login": "incov"}`),
		"GET /repos/incov/ncov-19-india/contents/data": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `[{"name": "2020-03-24.csv", "type": "file", "download_url": "%s/raw/2020-03-24.csv"}]`, server.URL)
		},
		"GET /raw/2020-03-24.csv": testutil.Respond(http.StatusOK, "text/csv", "state/ut\r\n"),
	})

	mirror := NewMirror(Config{
		ApiUrl: server.URL,
		Repo:   "ncov-19-india",
		Token:  "secret",
	}, Options{})

	written, err := mirror.Sync(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, []string{"2020-03-24.csv"}, written)
	require.Equal(t, []string{
		"GET /user",
		"GET /repos/incov/ncov-19-india/contents/data",
		"GET /raw/2020-03-24.csv",
	}, server.Calls())

	// the token goes to the api only
	requests := server.Requests()
	require.Equal(t, "Bearer secret", requests[0].Header.Get("Authorization"))
	require.Equal(t, "Bearer secret", requests[1].Header.Get("Authorization"))
	require.Empty(t, requests[2].Header.Get("Authorization"))
}

func TestSyncUnresolvableOwner(t *testing.T) {
	server := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /user": testutil.Respond(http.StatusUnauthorized, "application/json", `{"message": "Bad credentials"}`),
	})
	mirror := NewMirror(Config{ApiUrl: server.URL, Repo: "ncov-19-india"}, Options{})

	_, err := mirror.Sync(context.Background(), t.TempDir())
	var fetchErr *errs.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, []string{"GET /user"}, server.Calls())
}
