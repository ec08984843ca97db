package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/db"
	"github.com/unswcbr/dory/internal/domain"
)

// --- Mocks ---

type mapStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	sets    int
	ttlSets int
	lastTTL time.Duration
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mapStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.ttlSets++
	m.lastTTL = ttl
	m.data[key] = value
	return nil
}

type countingEmbedder struct {
	calls     int
	lastTexts []string
}

func (m *countingEmbedder) Embed(_ context.Context, texts []string, _ domain.Role) ([][]float32, error) {
	m.calls++
	m.lastTexts = texts
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0.5}
	}
	return out, nil
}

func newCached(inner domain.Embedder, s store) *CachedEmbedder {
	return New(inner, s, Config{
		KeyPrefix: "dory:",
		Provider:  "test",
		Model:     "test-model",
		Logger:    zap.NewNop(),
	})
}

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	s := newMapStore()
	inner := &countingEmbedder{}
	c := newCached(inner, s)

	first, err := c.Embed(context.Background(), []string{"hello"}, domain.RoleQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected one inner call, got %d", inner.calls)
	}

	second, err := c.Embed(context.Background(), []string{"hello"}, domain.RoleQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("second call should hit the cache, inner calls = %d", inner.calls)
	}
	if len(second) != 1 || len(second[0]) != len(first[0]) {
		t.Fatalf("cached vector shape mismatch")
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Errorf("cached vector differs at %d: %f vs %f", i, first[0][i], second[0][i])
		}
	}
}

func TestEmbed_PartialHitOnlyEmbedsMisses(t *testing.T) {
	s := newMapStore()
	inner := &countingEmbedder{}
	c := newCached(inner, s)

	if _, err := c.Embed(context.Background(), []string{"aa"}, domain.RoleDocument); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vecs, err := c.Embed(context.Background(), []string{"aa", "bbbb"}, domain.RoleDocument)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
	if len(inner.lastTexts) != 1 || inner.lastTexts[0] != "bbbb" {
		t.Errorf("only the miss should be embedded, got %v", inner.lastTexts)
	}
	// Order preserved: vecs[0] is the cached "aa", vecs[1] the fresh "bbbb".
	if vecs[0][0] != 2 || vecs[1][0] != 4 {
		t.Errorf("vectors misordered: %f, %f", vecs[0][0], vecs[1][0])
	}
}

func TestEmbed_WritesWithConfiguredTTL(t *testing.T) {
	s := newMapStore()
	inner := &countingEmbedder{}
	c := New(inner, s, Config{
		KeyPrefix: "dory:",
		Provider:  "test",
		Model:     "test-model",
		TTL:       24 * time.Hour,
		Logger:    zap.NewNop(),
	})

	if _, err := c.Embed(context.Background(), []string{"hello"}, domain.RoleQuery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.sets != 0 {
		t.Errorf("expected no plain writes with a TTL configured, got %d", s.sets)
	}
	if s.ttlSets != 1 {
		t.Fatalf("expected one expiring write, got %d", s.ttlSets)
	}
	if s.lastTTL != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %v", s.lastTTL)
	}

	if _, err := c.Embed(context.Background(), []string{"hello"}, domain.RoleQuery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("second call should hit the cache, inner calls = %d", inner.calls)
	}
}

func TestEmbed_StoreFailureFallsThrough(t *testing.T) {
	s := newMapStore()
	s.getErr = errors.New("connection refused")
	s.setErr = errors.New("connection refused")
	inner := &countingEmbedder{}
	c := newCached(inner, s)

	vecs, err := c.Embed(context.Background(), []string{"hello"}, domain.RoleQuery)
	if err != nil {
		t.Fatalf("cache failure must not fail embedding: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
	if inner.calls != 1 {
		t.Errorf("expected one inner call, got %d", inner.calls)
	}
}

func TestCacheKey_SeparatesModels(t *testing.T) {
	s := newMapStore()
	a := New(&countingEmbedder{}, s, Config{Provider: "p", Model: "m1", Logger: zap.NewNop()})
	b := New(&countingEmbedder{}, s, Config{Provider: "p", Model: "m2", Logger: zap.NewNop()})

	if a.cacheKey("text") == b.cacheKey("text") {
		t.Error("different models must produce different cache keys")
	}
}

func TestVectorBytes_Roundtrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.14159, 0}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d mismatch: %f vs %f", i, in[i], out[i])
		}
	}
}

func TestBytesToVector_RejectsTruncatedData(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}
