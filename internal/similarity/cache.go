package similarity

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsim_signature_cache_hits_total",
		Help: "Total number of signature cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsim_signature_cache_misses_total",
		Help: "Total number of signature cache misses.",
	})
)

// SignatureCache keeps per-document signatures so the corpus is not
// re-tokenized on every upload. Keys are document ids; documents are
// create-once, so entries never go stale.
type SignatureCache struct {
	scorer *Scorer
	cache  *expirable.LRU[int64, *Signature]
}

// NewSignatureCache creates an LRU signature cache with the given capacity
func NewSignatureCache(scorer *Scorer, maxSize int) *SignatureCache {
	return &SignatureCache{
		scorer: scorer,
		cache:  expirable.NewLRU[int64, *Signature](maxSize, nil, 24*time.Hour),
	}
}

// SignatureFor returns the signature for a stored document, computing and
// caching it on first use.
func (c *SignatureCache) SignatureFor(docID int64, content string) *Signature {
	if sig, ok := c.cache.Get(docID); ok {
		cacheHitsTotal.Inc()
		return sig
	}
	cacheMissesTotal.Inc()
	sig := c.scorer.Sign(content)
	c.cache.Add(docID, sig)
	return sig
}
