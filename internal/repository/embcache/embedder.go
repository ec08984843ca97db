// Package embcache caches embedding vectors in a key-value store, so
// trial retrievals and the subsequent real retrieval of the same query
// cost one provider call, not two.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/db"
	"github.com/unswcbr/dory/internal/domain"
)

// store is the consumer interface for the embedding cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder looks up each text in the cache and embeds only misses,
// preserving input order. New vectors are written back best-effort.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	keyPrefix  string
	provider   string
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Config holds cache decorator settings.
type Config struct {
	KeyPrefix string
	Provider  string
	Model     string
	// TTL bounds how long cached vectors live; zero means no expiry.
	TTL time.Duration
	// CacheTotal is a counter vec with label "result" ("hit"/"miss").
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, cfg Config) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		keyPrefix:  cfg.KeyPrefix + "emb_cache:",
		provider:   cfg.Provider,
		model:      cfg.Model,
		ttl:        cfg.TTL,
		cacheTotal: cfg.CacheTotal,
		logger:     cfg.Logger,
	}
}

// Embed returns cached vectors where available and calls the inner
// embedder once for the remaining texts.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string, role domain.Role) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.getFromCache(ctx, c.cacheKey(text)); ok {
			c.incCache("hit")
			vecs[i] = vec
			continue
		}
		c.incCache("miss")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vecs, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts, role)
	if err != nil {
		return nil, fmt.Errorf("embed uncached texts: %w", err)
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("got %d vectors for %d uncached texts", len(fresh), len(missTexts))
	}

	for j, vec := range fresh {
		vecs[missIdx[j]] = vec
		c.putToCache(ctx, c.cacheKey(missTexts[j]), vec)
	}
	return vecs, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes provider, model, and text together: vectors from
// different provider+model pairs are never comparable.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.provider + "\x00" + c.model + "\x00" + text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
