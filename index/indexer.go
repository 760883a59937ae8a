// Package index embeds corpus phrases into an in-memory vector index and
// offers a semantic suggestion provider on top of it.
package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

const (
	indexBatchSize   = 32
	indexConcurrency = 4
)

// Match is a phrase found near a query.
type Match struct {
	Phrase string
	// Similarity is the cosine similarity to the query, 1 meaning identical direction.
	Similarity float64
}

// Indexer holds corpus phrases in an HNSW graph keyed by phrase hash.
type Indexer struct {
	embedder *Embedder
	queries  *ttlcache.Cache[string, []float32]

	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	phrases map[string]string // hash -> phrase

	closeOnce sync.Once
}

// NewIndexer creates an empty index. Query embeddings are cached for ttl.
func NewIndexer(embedder *Embedder, ttl time.Duration) *Indexer {
	c := ttlcache.New[string, []float32](
		ttlcache.WithTTL[string, []float32](ttl),
		ttlcache.WithDisableTouchOnHit[string, []float32](),
	)
	go c.Start()
	return &Indexer{
		embedder: embedder,
		queries:  c,
		graph:    hnsw.NewGraph[string](),
		phrases:  make(map[string]string),
	}
}

// IndexPhrases replaces the indexed corpus with phrases. Phrases already in
// the index keep their vectors; new ones are embedded in concurrent batches.
// On error the previous index stays in place.
func (idx *Indexer) IndexPhrases(ctx context.Context, phrases []string) error {
	type entry struct {
		hash   string
		phrase string
	}

	var (
		nodes   []hnsw.Node[string]
		toEmbed []entry
		next    = make(map[string]string, len(phrases))
	)

	idx.mu.RLock()
	for _, p := range phrases {
		hash := hashPhrase(p)
		if _, dup := next[hash]; dup {
			continue
		}
		next[hash] = p
		if vec, ok := idx.graph.Lookup(hash); ok {
			nodes = append(nodes, hnsw.MakeNode(hash, vec))
			continue
		}
		toEmbed = append(toEmbed, entry{hash, p})
	}
	idx.mu.RUnlock()

	batches := (len(toEmbed) + indexBatchSize - 1) / indexBatchSize
	vectors := make([][][]float32, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for b := 0; b < batches; b++ {
		start := b * indexBatchSize
		end := min(start+indexBatchSize, len(toEmbed))
		texts := make([]string, 0, end-start)
		for _, e := range toEmbed[start:end] {
			texts = append(texts, e.phrase)
		}
		g.Go(func() error {
			vecs, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b, err)
			}
			vectors[b] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to embed corpus: %w", err)
	}

	for b, vecs := range vectors {
		for j, vec := range vecs {
			nodes = append(nodes, hnsw.MakeNode(toEmbed[b*indexBatchSize+j].hash, vec))
		}
	}

	graph := hnsw.NewGraph[string]()
	if len(nodes) > 0 {
		graph.Add(nodes...)
	}

	idx.mu.Lock()
	idx.graph = graph
	idx.phrases = next
	idx.mu.Unlock()

	slog.Debug("corpus indexed", "phrases", len(next), "embedded", len(toEmbed))
	return nil
}

// Len returns the number of indexed phrases.
func (idx *Indexer) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len()
}

// Search embeds the query and returns up to k phrases, most similar first.
func (idx *Indexer) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 || idx.Len() == 0 {
		return nil, nil
	}

	queryVec, err := idx.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	neighbors := idx.graph.Search(queryVec, k)
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		matches = append(matches, Match{
			Phrase:     idx.phrases[n.Key],
			Similarity: 1 - float64(hnsw.CosineDistance(queryVec, n.Value)),
		})
	}
	idx.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

func (idx *Indexer) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if item := idx.queries.Get(query); item != nil {
		return item.Value(), nil
	}
	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	idx.queries.Set(query, vec, ttlcache.DefaultTTL)
	return vec, nil
}

// Close stops the query cache expiration loop.
func (idx *Indexer) Close() {
	idx.closeOnce.Do(idx.queries.Stop)
}

func hashPhrase(p string) string {
	h := sha256.Sum256([]byte(p))
	return fmt.Sprintf("%x", h)
}
