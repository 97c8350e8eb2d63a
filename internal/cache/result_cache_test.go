package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightningralf/ontology-engine/internal/types"
)

func testRequest() types.QueryRequest {
	return types.QueryRequest{Identifier: "GetUser", URI: types.NewFileUri("/repo/service.go")}
}

func TestResultCachePutAndGet(t *testing.T) {
	c := NewResultCache(10)
	key := Fingerprint("findDefinition", testRequest())

	_, ok := c.Get(key)
	assert.False(t, ok, "expected miss on empty cache")

	c.Put(key, "result-value", QualityFor(KindExact, []float64{1.0}))

	val, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "result-value", val)
}

func TestResultCacheFingerprintStableAcrossNormalizedFields(t *testing.T) {
	req := testRequest()
	a := Fingerprint("findDefinition", req)
	b := Fingerprint("findDefinition", req)
	assert.Equal(t, a, b)

	req2 := req
	req2.Identifier = "different"
	c := Fingerprint("findDefinition", req2)
	assert.NotEqual(t, a, c)
}

func TestResultCacheRegisterAndInvalidateFile(t *testing.T) {
	c := NewResultCache(10)
	key := Fingerprint("findDefinition", testRequest())
	c.Put(key, "value", QualityFor(KindExact, []float64{1.0}))
	c.RegisterKeyURI(key, "/repo/service.go")

	removed := c.InvalidateFile("/repo/service.go")
	assert.Equal(t, 1, removed)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestResultCacheInvalidateFileNoOpWithoutIndex(t *testing.T) {
	c := NewResultCache(10)
	assert.Equal(t, 0, c.InvalidateFile("/unregistered.go"))
}

func TestResultCacheEvictsOldestOverCapacity(t *testing.T) {
	c := NewResultCache(2)
	quality := QualityFor(KindExact, []float64{1.0})

	c.Put(1, "one", quality)
	time.Sleep(time.Millisecond)
	c.Put(2, "two", quality)
	time.Sleep(time.Millisecond)
	c.Put(3, "three", quality)

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Entries, int64(2))

	_, ok := c.Get(3)
	assert.True(t, ok, "most recently inserted entry should survive eviction")
}

func TestResultCacheClear(t *testing.T) {
	c := NewResultCache(10)
	c.Put(1, "one", QualityFor(KindExact, []float64{1.0}))
	c.Clear()

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.EqualValues(t, 0, c.Stats().Entries)
}
