package testutil

import (
	"database/sql"
	"fmt"
	"incov-backend/lib/telemetry"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService sets up test telemetry and, when a schema is given, an
// in-memory sqlite database with the schema applied.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every pooled connection to :memory: would otherwise get its own
	// empty database
	db.SetMaxOpenConns(1)
	_, err = db.Exec(params.DbSchema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		cleanup()
	}
}

type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

// MockServer is an httptest server that routes "METHOD /path" keys to
// handlers and records every request it receives in order.
type MockServer struct {
	*httptest.Server

	mutex    sync.Mutex
	requests []Request
}

func NewMockServer(t testing.TB, routes map[string]http.HandlerFunc) *MockServer {
	mock := &MockServer{}
	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mutex.Lock()
		mock.requests = append(mock.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		mock.mutex.Unlock()

		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Logf("mock server: no route for %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(mock.Close)
	return mock
}

func (m *MockServer) Requests() []Request {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the "METHOD /path" of every recorded request.
func (m *MockServer) Calls() []string {
	requests := m.Requests()
	calls := make([]string, len(requests))
	for i, r := range requests {
		calls[i] = r.Method + " " + r.Path
	}
	return calls
}

// Respond returns a handler that writes body with the given status.
func Respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}
