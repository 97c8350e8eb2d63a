//go:build leaktests

package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/lightningralf/ontology-engine/internal/types"
)

// TestPoolSearchLeavesNoGoroutines exercises the errgroup/semaphore
// worker pool in scanFiles end to end and verifies SearchCancellable's
// background goroutine exits once its channel is drained.
func TestPoolSearchLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "file"+string(rune('0'+i))+".go")
		if err := os.WriteFile(name, []byte("package x\nfunc GetUser() {}\n"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	pool := NewPool(dir, 4, nil)
	ctx := context.Background()

	if _, err := pool.Search(ctx, types.SearchOptions{
		Pattern:    "GetUser",
		Path:       dir,
		MaxResults: 10,
		TimeoutMs:  1000,
	}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	outcomes, cancel := pool.SearchCancellable(ctx, types.SearchOptions{
		Pattern:    "GetUser",
		Path:       dir,
		MaxResults: 10,
		TimeoutMs:  1000,
	})
	<-outcomes
	cancel()
}
