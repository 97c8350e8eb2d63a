package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmResolvesEverySeed(t *testing.T) {
	c := NewResultCache(10)
	var resolved []string

	c.Warm(context.Background(), []string{"GetUser", "PlaceOrder"}, func(ctx context.Context, identifier string) error {
		resolved = append(resolved, identifier)
		return nil
	})

	assert.Equal(t, []string{"GetUser", "PlaceOrder"}, resolved)
}

func TestWarmSkipsEmptySeedsAndContinuesOnError(t *testing.T) {
	c := NewResultCache(10)
	var resolved []string

	c.Warm(context.Background(), []string{"", "GetUser", "Broken"}, func(ctx context.Context, identifier string) error {
		if identifier == "Broken" {
			return errors.New("resolve failed")
		}
		resolved = append(resolved, identifier)
		return nil
	})

	assert.Equal(t, []string{"GetUser"}, resolved)
}

func TestWatchInvalidationInvalidatesOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "service.go")
	require.NoError(t, os.WriteFile(target, []byte("package service\n"), 0o644))

	c := NewResultCache(10)
	key := Fingerprint("findDefinition", testRequest())
	c.Put(key, "value", QualityFor(KindExact, []float64{1.0}))
	c.RegisterKeyURI(key, target)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.WatchInvalidation(ctx, dir))

	require.NoError(t, os.WriteFile(target, []byte("package service\n\nfunc more() {}\n"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Get(key); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected cache entry to be invalidated after file write")
}

func TestWatchInvalidationErrorsOnMissingRoot(t *testing.T) {
	c := NewResultCache(10)
	err := c.WatchInvalidation(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
