package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/quotes/internal/idempotency/memory"
	"github.com/dejobratic/quotes/internal/kafka"
	quoteshttp "github.com/dejobratic/quotes/internal/quotes/adapters/http"
	storememory "github.com/dejobratic/quotes/internal/quotes/adapters/memory"
	"github.com/dejobratic/quotes/internal/quotes/app"
	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/metrics"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	keyCreate  = "6b1f0a4e-3c2d-4e5f-8a9b-0c1d2e3f4a5b"
	keySecond  = "7c2e1b5f-4d3e-4f6a-9b0c-1d2e3f4a5b6c"
	keyUnused  = "8d3f2c6a-5e4f-4a7b-0c1d-2e3f4a5b6c7d"
	createBody = `{"document_id":"doc-1","content":"what we think, we become","author":"buddha","tags":["mind"],"category":"wisdom"}`
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	quoteMetrics, err := metrics.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	service := app.NewService(
		storememory.NewRepository(),
		memory.NewStore(time.Minute),
		kafka.NewNoopEventBus(),
		logger,
		quoteMetrics,
	)

	mux := http.NewServeMux()
	quoteshttp.NewHandler(service).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// failingStore simulates a storage backend that is down.
type failingStore struct{}

var errStoreDown = errors.New("dial tcp: connection refused")

func (failingStore) Append(context.Context, domain.Quote) (*domain.Quote, error) {
	return nil, errStoreDown
}

func (failingStore) GetLatest(context.Context, string) (*domain.Quote, error) {
	return nil, errStoreDown
}

func (failingStore) Get(context.Context, string, int64) (*domain.Quote, error) {
	return nil, errStoreDown
}

func (failingStore) GetLatestBatch(context.Context, []string) (map[string]domain.Quote, error) {
	return nil, errStoreDown
}

func (failingStore) ListVersions(context.Context, string) ([]domain.Quote, error) {
	return nil, errStoreDown
}

func newFailingStoreServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	quoteMetrics, err := metrics.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	service := app.NewService(
		failingStore{},
		memory.NewStore(time.Minute),
		kafka.NewNoopEventBus(),
		logger,
		quoteMetrics,
	)

	mux := http.NewServeMux()
	quoteshttp.NewHandler(service).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postQuote(t *testing.T, server *httptest.Server, body, idempotencyKey string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/quotes", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func TestCreateQuoteEndpoint(t *testing.T) {
	t.Run("creates a quote", func(t *testing.T) {
		server := newTestServer(t)

		resp := postQuote(t, server, createBody, keyCreate)

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp))
		}

		if got := resp.Header.Get("Idempotency-Status"); got != "created" {
			t.Errorf("expected Idempotency-Status created, got %q", got)
		}

		if got := resp.Header.Get("Location"); got != "/v1/documents/doc-1/quotes/1" {
			t.Errorf("unexpected Location header: %q", got)
		}

		body := readBody(t, resp)
		if !strings.Contains(body, `"version":1`) {
			t.Errorf("expected version 1 in body, got: %s", body)
		}
	})

	t.Run("replays the same key with the same payload", func(t *testing.T) {
		server := newTestServer(t)

		first := postQuote(t, server, createBody, keyCreate)
		if first.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", first.StatusCode)
		}
		firstBody := readBody(t, first)

		second := postQuote(t, server, createBody, keyCreate)
		if second.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on replay, got %d", second.StatusCode)
		}

		if got := second.Header.Get("Idempotency-Status"); got != "replayed" {
			t.Errorf("expected Idempotency-Status replayed, got %q", got)
		}

		secondBody := readBody(t, second)
		if firstBody != secondBody {
			t.Errorf("expected identical bodies, got:\n%s\n%s", firstBody, secondBody)
		}

		history := getJSON(t, server, "/v1/documents/doc-1/quotes")
		if !strings.Contains(readBody(t, history), `"count":1`) {
			t.Error("expected a single revision after replay")
		}
	})

	t.Run("rejects key reuse with a different payload", func(t *testing.T) {
		server := newTestServer(t)

		if resp := postQuote(t, server, createBody, keyCreate); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		altered := strings.Replace(createBody, "what we think, we become", "a different quote entirely", 1)
		resp := postQuote(t, server, altered, keyCreate)

		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("new key appends a new version", func(t *testing.T) {
		server := newTestServer(t)

		if resp := postQuote(t, server, createBody, keyCreate); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		altered := strings.Replace(createBody, "what we think, we become", "a revised quote for the document", 1)
		resp := postQuote(t, server, altered, keySecond)

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		if got := resp.Header.Get("Location"); got != "/v1/documents/doc-1/quotes/2" {
			t.Errorf("unexpected Location header: %q", got)
		}

		latest := getJSON(t, server, "/v1/documents/doc-1/latest")
		body := readBody(t, latest)
		if !strings.Contains(body, `"version":2`) {
			t.Errorf("expected latest to be version 2, got: %s", body)
		}
		if !strings.Contains(body, "a revised quote for the document") {
			t.Errorf("expected latest to carry the new content, got: %s", body)
		}
	})

	t.Run("requires the idempotency key header", func(t *testing.T) {
		server := newTestServer(t)

		resp := postQuote(t, server, createBody, "")

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects a non-uuid idempotency key", func(t *testing.T) {
		server := newTestServer(t)

		resp := postQuote(t, server, createBody, "not-a-uuid")

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "malformed json", body: `{"document_id":`},
			{name: "missing document id", body: `{"content":"what we think, we become"}`},
			{name: "content too short", body: `{"document_id":"doc-1","content":"hi"}`},
			{name: "unknown category", body: `{"document_id":"doc-1","content":"what we think, we become","category":"nope"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := newTestServer(t)

				resp := postQuote(t, server, tt.body, keyUnused)

				if resp.StatusCode != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
				}
			})
		}
	})

	t.Run("rejects non-post methods", func(t *testing.T) {
		server := newTestServer(t)

		resp := getJSON(t, server, "/v1/quotes")

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("maps store failures to 500", func(t *testing.T) {
		server := newFailingStoreServer(t)

		resp := postQuote(t, server, createBody, keyUnused)
		body := readBody(t, resp)

		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", resp.StatusCode, body)
		}

		if strings.Contains(body, "connection refused") {
			t.Errorf("expected the store error to stay out of the response, got %s", body)
		}
	})
}

func TestDocumentEndpoints(t *testing.T) {
	t.Run("returns 404 for a document without quotes", func(t *testing.T) {
		server := newTestServer(t)

		resp := getJSON(t, server, "/v1/documents/missing/latest")

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("fetches a superseded revision by version", func(t *testing.T) {
		server := newTestServer(t)

		if resp := postQuote(t, server, createBody, keyCreate); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		altered := strings.Replace(createBody, "what we think, we become", "a revised quote for the document", 1)
		if resp := postQuote(t, server, altered, keySecond); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		resp := getJSON(t, server, "/v1/documents/doc-1/quotes/1")

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		body := readBody(t, resp)
		if !strings.Contains(body, `"status":"superseded"`) {
			t.Errorf("expected superseded status, got: %s", body)
		}
	})

	t.Run("rejects a non-integer version", func(t *testing.T) {
		server := newTestServer(t)

		resp := getJSON(t, server, "/v1/documents/doc-1/quotes/one")

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("lists the full revision history", func(t *testing.T) {
		server := newTestServer(t)

		if resp := postQuote(t, server, createBody, keyCreate); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		altered := strings.Replace(createBody, "what we think, we become", "a revised quote for the document", 1)
		if resp := postQuote(t, server, altered, keySecond); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		resp := getJSON(t, server, "/v1/documents/doc-1/quotes")

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		if !strings.Contains(readBody(t, resp), `"count":2`) {
			t.Error("expected two revisions in history")
		}
	})

	t.Run("returns 404 for unknown document paths", func(t *testing.T) {
		server := newTestServer(t)

		resp := getJSON(t, server, "/v1/documents/doc-1/unknown")

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestLatestBatchEndpoint(t *testing.T) {
	t.Run("returns the active quote per document", func(t *testing.T) {
		server := newTestServer(t)

		if resp := postQuote(t, server, createBody, keyCreate); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		other := strings.Replace(createBody, "doc-1", "doc-2", 1)
		if resp := postQuote(t, server, other, keySecond); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		resp := getJSON(t, server, "/v1/quotes/latest?document_ids=doc-1,doc-2,missing")

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		body := readBody(t, resp)
		if !strings.Contains(body, `"count":2`) {
			t.Errorf("expected 2 quotes, got: %s", body)
		}
		if strings.Contains(body, "missing") {
			t.Errorf("expected unknown document to be absent, got: %s", body)
		}
	})

	t.Run("requires the document_ids parameter", func(t *testing.T) {
		server := newTestServer(t)

		resp := getJSON(t, server, "/v1/quotes/latest")

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}
