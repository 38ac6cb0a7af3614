package idgen

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobIDs(t *testing.T) {
	id := Jobs()
	if !strings.HasPrefix(id, "job_") {
		t.Fatalf("job ID %q missing type tag", id)
	}
	raw := strings.TrimPrefix(id, "job_")
	u, err := uuid.Parse(raw)
	if err != nil {
		t.Fatalf("job ID %q is not a UUID: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("job ID version = %d, want 7", u.Version())
	}
}

func TestJobIDsSortByCreation(t *testing.T) {
	// v7 IDs embed a timestamp, so job rows keyed by them come back in
	// enqueue order.
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, Jobs())
		time.Sleep(2 * time.Millisecond)
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("IDs not in creation order: %v", ids)
	}
}

func TestUniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("req_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("id = %q, want req_ prefix", id)
	}
	if len(id) != len("req_")+36 {
		t.Fatalf("id length = %d", len(id))
	}
}
