package jobq_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Valian/extractous-go/dbopen"
	"github.com/Valian/extractous-go/extractous"
	"github.com/Valian/extractous-go/jobq"
)

func newStore(t *testing.T) *jobq.Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s := jobq.NewStore(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEnqueueClaimComplete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	job := &jobq.Job{ID: "j1", Pathway: "file", Input: "/tmp/doc.pdf", Payload: `{"xml":true}`}
	if err := s.Enqueue(ctx, job); err != nil {
		t.Fatal(err)
	}
	if job.Status != jobq.StatusPending {
		t.Fatalf("status after enqueue: %q", job.Status)
	}

	claimed, err := s.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil {
		t.Fatal("expected a job")
	}
	if claimed.ID != "j1" || claimed.Status != jobq.StatusRunning {
		t.Fatalf("claimed: id=%q status=%q", claimed.ID, claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("attempts: got %d, want 1", claimed.Attempts)
	}
	if claimed.Payload != `{"xml":true}` {
		t.Fatalf("payload: got %q", claimed.Payload)
	}

	// Second claim finds nothing — the job is leased.
	if j2, err := s.Claim(ctx, time.Minute); err != nil || j2 != nil {
		t.Fatalf("leased job re-claimed: job=%v err=%v", j2, err)
	}

	if err := s.Complete(ctx, "j1", "hello", `{"Content-Type": ["text/plain"]}`); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != jobq.StatusDone || got.Content != "hello" {
		t.Fatalf("after complete: status=%q content=%q", got.Status, got.Content)
	}
	if got.Metadata == "" {
		t.Fatal("metadata not stored")
	}
}

func TestFail(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &jobq.Job{ID: "j1", Pathway: "url", Input: "https://example.com/x.pdf"})
	if _, err := s.Claim(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Fail(ctx, "j1", "Extraction from URL failed: boom"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "j1")
	if got.Status != jobq.StatusFailed {
		t.Fatalf("status: %q", got.Status)
	}
	if !strings.HasPrefix(got.Error, "Extraction from URL failed") {
		t.Fatalf("error text: %q", got.Error)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, jobq.ErrNotFound) {
		t.Fatalf("error: got %v, want ErrNotFound", err)
	}
}

func TestExpiredRunningJobReclaimable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &jobq.Job{ID: "j1", Pathway: "file", Input: "/tmp/a.txt"})

	// Claim with a tiny lease, then let it expire.
	if _, err := s.Claim(ctx, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	again, err := s.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if again == nil {
		t.Fatal("expired job should be claimable again")
	}
	if again.Attempts != 2 {
		t.Fatalf("attempts: got %d, want 2", again.Attempts)
	}
}

func TestNoDoubleClaim(t *testing.T) {
	// WHY: two workers racing for one pending job must never both run it.
	s := newStore(t)
	ctx := context.Background()

	const jobs = 10
	for i := 0; i < jobs; i++ {
		s.Enqueue(ctx, &jobq.Job{ID: fmt.Sprintf("j%d", i), Pathway: "file", Input: "/tmp/x"})
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := s.Claim(ctx, time.Minute)
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("claimed %d distinct jobs, want %d", len(seen), jobs)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("job %s claimed %d times", id, n)
		}
	}
}

func TestRelease(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &jobq.Job{ID: "j1", Pathway: "file", Input: "/tmp/a"})
	if _, err := s.Claim(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(ctx, "j1"); err != nil {
		t.Fatal(err)
	}
	job, err := s.Claim(ctx, time.Minute)
	if err != nil || job == nil {
		t.Fatalf("released job not claimable: job=%v err=%v", job, err)
	}
}

func TestPurge(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Enqueue(ctx, &jobq.Job{ID: "done1", Pathway: "file", Input: "/tmp/a"})
	s.Enqueue(ctx, &jobq.Job{ID: "pend1", Pathway: "file", Input: "/tmp/b"})
	if _, err := s.Claim(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, "done1", "text", "{}"); err != nil {
		t.Fatal(err)
	}

	// The cutoff compares millisecond timestamps strictly.
	time.Sleep(5 * time.Millisecond)
	n, err := s.Purge(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}
	if _, err := s.Get(ctx, "done1"); !errors.Is(err, jobq.ErrNotFound) {
		t.Fatalf("finished job still present: %v", err)
	}
	// Pending jobs are never swept.
	if _, err := s.Get(ctx, "pend1"); err != nil {
		t.Fatalf("pending job swept: %v", err)
	}
}

func TestClosedStore(t *testing.T) {
	s := newStore(t)
	s.Close()
	if err := s.Enqueue(context.Background(), &jobq.Job{ID: "j1", Pathway: "file"}); !errors.Is(err, jobq.ErrClosed) {
		t.Fatalf("error: got %v, want ErrClosed", err)
	}
}

// fakeExtractor records calls and returns canned results.
type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeExtractor) record(c string) (*extractous.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("Extraction failed: no extractor")
	}
	return &extractous.Result{Content: "text from " + c, Metadata: "{}"}, nil
}

func (f *fakeExtractor) ExtractFile(_ context.Context, path, _ string) (*extractous.Result, error) {
	return f.record("file:" + path)
}
func (f *fakeExtractor) ExtractBytes(_ context.Context, data []byte, _ string) (*extractous.Result, error) {
	return f.record(fmt.Sprintf("bytes:%d", len(data)))
}
func (f *fakeExtractor) ExtractURL(_ context.Context, rawURL, _ string) (*extractous.Result, error) {
	return f.record("url:" + rawURL)
}

func TestRunnerExecutesJobs(t *testing.T) {
	db := dbopen.OpenMemory(t)
	// The runner claims from multiple goroutines.
	db.SetMaxOpenConns(1)
	s := jobq.NewStore(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Enqueue(ctx, &jobq.Job{ID: "f1", Pathway: "file", Input: "/tmp/a.txt"})
	s.Enqueue(ctx, &jobq.Job{ID: "b1", Pathway: "bytes", Data: []byte("raw")})
	s.Enqueue(ctx, &jobq.Job{ID: "u1", Pathway: "url", Input: "https://example.com/d.pdf"})

	fake := &fakeExtractor{}
	runner := jobq.NewRunner(s, fake, jobq.Options{
		Workers:      2,
		PollInterval: 10 * time.Millisecond,
	})
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		j1, _ := s.Get(ctx, "f1")
		j2, _ := s.Get(ctx, "b1")
		j3, _ := s.Get(ctx, "u1")
		if j1 != nil && j1.Status == jobq.StatusDone &&
			j2 != nil && j2.Status == jobq.StatusDone &&
			j3 != nil && j3.Status == jobq.StatusDone {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("jobs not done: %v %v %v", j1.Status, j2.Status, j3.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
	cancel()
	<-done

	got, _ := s.Get(context.Background(), "f1")
	if got.Content != "text from file:/tmp/a.txt" {
		t.Fatalf("content: %q", got.Content)
	}
}

// blockingExtractor parks until the call's context is canceled.
type blockingExtractor struct{}

func (blockingExtractor) ExtractFile(ctx context.Context, _, _ string) (*extractous.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingExtractor) ExtractBytes(ctx context.Context, _ []byte, _ string) (*extractous.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingExtractor) ExtractURL(ctx context.Context, _, _ string) (*extractous.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunnerReleasesJobOnShutdown(t *testing.T) {
	// A job interrupted by shutdown is not a failed extraction: it goes
	// back to pending for the next process instead of recording an error.
	db := dbopen.OpenMemory(t)
	db.SetMaxOpenConns(1)
	s := jobq.NewStore(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Enqueue(ctx, &jobq.Job{ID: "f1", Pathway: "file", Input: "/tmp/slow.pdf"})

	runner := jobq.NewRunner(s, blockingExtractor{}, jobq.Options{Workers: 1, PollInterval: 10 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// Wait for the worker to pick the job up, then shut down mid-flight.
	deadline := time.After(5 * time.Second)
	for {
		j, err := s.Get(ctx, "f1")
		if err != nil {
			t.Fatal(err)
		}
		if j.Status == jobq.StatusRunning {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job never claimed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	j, err := s.Get(context.Background(), "f1")
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != jobq.StatusPending {
		t.Fatalf("status after shutdown: %q, want pending", j.Status)
	}
	if j.Error != "" {
		t.Fatalf("shutdown recorded an error: %q", j.Error)
	}
}

func TestRunnerRecordsExtractionFailure(t *testing.T) {
	db := dbopen.OpenMemory(t)
	db.SetMaxOpenConns(1)
	s := jobq.NewStore(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Enqueue(ctx, &jobq.Job{ID: "f1", Pathway: "file", Input: "/nope"})

	fake := &fakeExtractor{fail: true}
	runner := jobq.NewRunner(s, fake, jobq.Options{Workers: 1, PollInterval: 10 * time.Millisecond})
	go runner.Run(ctx)

	deadline := time.After(5 * time.Second)
	for {
		j, _ := s.Get(ctx, "f1")
		if j != nil && j.Status == jobq.StatusFailed {
			if !strings.HasPrefix(j.Error, "Extraction failed") {
				t.Fatalf("error text: %q", j.Error)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("job never failed")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
