package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Valian/extractous-go/dbopen"
	"github.com/Valian/extractous-go/engine"
	"github.com/Valian/extractous-go/extractous"
	"github.com/Valian/extractous-go/jobq"
)

func testServer(t *testing.T, authToken string) *httptest.Server {
	t.Helper()
	db := dbopen.OpenMemory(t)
	store := jobq.NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	ex := extractous.New(engine.New(engine.Config{}))
	srv := newServer(ex, store, authToken, 2)

	r := chi.NewRouter()
	srv.routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts := testServer(t, "")
	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestExtractFileEndpoint(t *testing.T) {
	ts := testServer(t, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("service content"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, body := postJSON(t, ts, "/v1/extract/file", map[string]any{"path": path}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if content, _ := body["content"].(string); !strings.Contains(content, "service content") {
		t.Errorf("content = %v", body["content"])
	}
}

func TestExtractFileBadConfig(t *testing.T) {
	ts := testServer(t, "")

	resp, body := postJSON(t, ts, "/v1/extract/file", map[string]any{
		"path":   "whatever.txt",
		"config": map[string]any{"encoding": "EBCDIC"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestExtractFileNotFound(t *testing.T) {
	ts := testServer(t, "")

	resp, body := postJSON(t, ts, "/v1/extract/file", map[string]any{"path": "/no/such/file.txt"}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if msg, _ := body["error"].(string); !strings.HasPrefix(msg, "Extraction failed: ") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestExtractBytesEndpoint(t *testing.T) {
	ts := testServer(t, "")

	resp, body := postJSON(t, ts, "/v1/extract/bytes", map[string]any{
		"data":   base64.StdEncoding.EncodeToString([]byte("bytes pathway")),
		"config": map[string]any{"max_length": 5},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["content"] != "bytes" {
		t.Errorf("content = %v", body["content"])
	}

	resp, _ = postJSON(t, ts, "/v1/extract/bytes", map[string]any{"data": "not-base64!!"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad base64 status = %d", resp.StatusCode)
	}
}

func TestAuthToken(t *testing.T) {
	ts := testServer(t, "secret")

	resp, _ := postJSON(t, ts, "/v1/extract/file", map[string]any{"path": "x.txt"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts, "/v1/extract/file", map[string]any{"path": "x.txt"},
		map[string]string{"Authorization": "Bearer wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	resp, body := postJSON(t, ts, "/v1/extract/file", map[string]any{"path": "/no/such.txt"},
		map[string]string{"Authorization": "Bearer secret"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("valid token status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestJobLifecycleEndpoints(t *testing.T) {
	ts := testServer(t, "")

	resp, body := postJSON(t, ts, "/v1/jobs", map[string]any{
		"pathway": "bytes",
		"data":    base64.StdEncoding.EncodeToString([]byte("queued work")),
	}, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("create status = %d, body = %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no job id in %v", body)
	}
	if !strings.HasPrefix(id, "job_") {
		t.Fatalf("job id %q missing type tag", id)
	}

	getResp, err := ts.Client().Get(ts.URL + "/v1/jobs/" + id)
	if err != nil {
		t.Fatal(err)
	}
	var job jobResponse
	json.NewDecoder(getResp.Body).Decode(&job)
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", getResp.StatusCode)
	}
	if job.Status != "pending" {
		t.Errorf("status = %q, want pending", job.Status)
	}

	getResp, err = ts.Client().Get(ts.URL + "/v1/jobs/nope")
	if err != nil {
		t.Fatal(err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", getResp.StatusCode)
	}
}

func TestCreateJobValidation(t *testing.T) {
	ts := testServer(t, "")

	resp, _ := postJSON(t, ts, "/v1/jobs", map[string]any{"pathway": "carrier-pigeon"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad pathway status = %d", resp.StatusCode)
	}

	// A bad config must fail the request, not the job.
	resp, _ = postJSON(t, ts, "/v1/jobs", map[string]any{
		"pathway": "file",
		"path":    "x.txt",
		"config":  map[string]any{"encoding": "EBCDIC"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad config status = %d", resp.StatusCode)
	}
}
