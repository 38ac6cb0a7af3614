// CLAUDE:SUMMARY HTTP surface of extractd: synchronous extract endpoints, async jobs, health, error mapping.
package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Valian/extractous-go/extractous"
	"github.com/Valian/extractous-go/idgen"
	"github.com/Valian/extractous-go/jobq"
	"github.com/Valian/extractous-go/pipeline"
	"github.com/Valian/extractous-go/shield"
)

// server bundles the extractor, the job store, and the knobs the handlers
// need.
type server struct {
	ex        *extractous.Extractor
	jobs      *jobq.Store
	newJobID  idgen.Generator
	authToken string
	// sem bounds concurrent synchronous extractions so OCR-heavy requests
	// can't occupy every connection.
	sem chan struct{}
}

func newServer(ex *extractous.Extractor, jobs *jobq.Store, authToken string, workers int) *server {
	return &server{
		ex:        ex,
		jobs:      jobs,
		newJobID:  idgen.Jobs,
		authToken: authToken,
		sem:       make(chan struct{}, workers),
	}
}

func (s *server) routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if s.authToken != "" {
			r.Use(s.requireToken)
		}
		r.Post("/v1/extract/file", s.handleExtractFile)
		r.Post("/v1/extract/bytes", s.handleExtractBytes)
		r.Post("/v1/extract/url", s.handleExtractURL)
		r.Post("/v1/jobs", s.handleCreateJob)
		r.Get("/v1/jobs/{id}", s.handleGetJob)
	})
}

func (s *server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.authToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// acquire blocks until a synchronous extraction slot frees up or the client
// goes away.
func (s *server) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *server) release() { <-s.sem }

type extractRequest struct {
	Path   string          `json:"path,omitempty"`
	Data   string          `json:"data,omitempty"` // base64
	URL    string          `json:"url,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (req *extractRequest) payload() string {
	if len(req.Config) == 0 {
		return ""
	}
	return string(req.Config)
}

func (s *server) handleExtractFile(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	if err := s.acquire(r.Context()); err != nil {
		return
	}
	defer s.release()
	s.respond(w, r, func() (*extractous.Result, error) {
		return s.ex.ExtractFile(r.Context(), req.Path, req.payload())
	})
}

func (s *server) handleExtractBytes(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "data must be base64"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "data is required"})
		return
	}
	if err := s.acquire(r.Context()); err != nil {
		return
	}
	defer s.release()
	s.respond(w, r, func() (*extractous.Result, error) {
		return s.ex.ExtractBytes(r.Context(), data, req.payload())
	})
}

func (s *server) handleExtractURL(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	if err := s.acquire(r.Context()); err != nil {
		return
	}
	defer s.release()
	s.respond(w, r, func() (*extractous.Result, error) {
		return s.ex.ExtractURL(r.Context(), req.URL, req.payload())
	})
}

// respond runs fn and maps its error to the response contract: config
// errors are the client's fault (400), extraction failures are 422 with the
// pathway-prefixed message, anything else is a 500.
func (s *server) respond(w http.ResponseWriter, r *http.Request, fn func() (*extractous.Result, error)) {
	res, err := fn()
	if err != nil {
		log := shield.GetLogger(r.Context())
		status := errStatus(err)
		log.Info("extract failed", "status", status, "error", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func errStatus(err error) int {
	var enum *pipeline.UnknownEnumError
	var extract *extractous.ExtractError
	switch {
	case errors.Is(err, pipeline.ErrBadPayload), errors.As(err, &enum):
		return http.StatusBadRequest
	case errors.As(err, &extract):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type jobRequest struct {
	Pathway string          `json:"pathway"`
	Path    string          `json:"path,omitempty"`
	URL     string          `json:"url,omitempty"`
	Data    string          `json:"data,omitempty"` // base64, bytes pathway
	Config  json.RawMessage `json:"config,omitempty"`
}

func (s *server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	// The payload is validated up front so a bad config fails the request,
	// not the job.
	payload := ""
	if len(req.Config) > 0 {
		payload = string(req.Config)
	}
	if _, err := pipeline.Resolve(payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	job := &jobq.Job{ID: s.newJobID(), Payload: payload}
	switch req.Pathway {
	case "file":
		if req.Path == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
			return
		}
		job.Pathway, job.Input = "file", req.Path
	case "url":
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
			return
		}
		job.Pathway, job.Input = "url", req.URL
	case "bytes":
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil || len(data) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "data must be non-empty base64"})
			return
		}
		job.Pathway, job.Data = "bytes", data
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pathway must be file, bytes, or url"})
		return
	}

	if err := s.jobs.Enqueue(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID, "status": string(job.Status)})
}

type jobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Content  string `json:"content,omitempty"`
	Metadata string `json:"metadata,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobq.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Attempts: job.Attempts,
		Content:  job.Content,
		Metadata: job.Metadata,
		Error:    job.Error,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return err
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
