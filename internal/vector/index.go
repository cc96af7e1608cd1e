package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/propos4l/proposal-engine/internal/models"
)

// Match is one similarity-search result, nearest first.
type Match struct {
	OwnerID  string            `json:"ownerId"`
	Kind     models.EntityKind `json:"kind"`
	Distance float64           `json:"distance"`
}

type entry struct {
	record models.EmbeddingRecord
	seq    uint64 // insertion order, preserved across upserts
}

// Index is a flat in-process vector index with exhaustive L2 search.
// Writers are serialized; concurrent reads proceed in parallel.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  []entry
	byOwner  map[string]int // owner id -> position in entries
	nextSeq  uint64
}

func NewIndex(embedder Embedder) *Index {
	return &Index{
		embedder: embedder,
		byOwner:  make(map[string]int),
	}
}

// Upsert embeds text and inserts or replaces the record for ownerID.
// Replacing keeps the original insertion sequence so search tie-breaks stay
// stable across re-indexing.
func (ix *Index) Upsert(ownerID string, kind models.EntityKind, text string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id is required")
	}

	vec := ix.embedder.Embed(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec := models.EmbeddingRecord{
		OwnerID:    ownerID,
		Kind:       kind,
		Vector:     vec,
		InsertedAt: time.Now(),
	}

	if pos, ok := ix.byOwner[ownerID]; ok {
		rec.InsertedAt = ix.entries[pos].record.InsertedAt
		ix.entries[pos].record = rec
		return nil
	}

	ix.entries = append(ix.entries, entry{record: rec, seq: ix.nextSeq})
	ix.byOwner[ownerID] = len(ix.entries) - 1
	ix.nextSeq++
	return nil
}

// RemoveOwner deletes the record for ownerID, if present. Document deletion
// cascades here so the index never points at a missing owner.
func (ix *Index) RemoveOwner(ownerID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	pos, ok := ix.byOwner[ownerID]
	if !ok {
		return
	}

	ix.entries = append(ix.entries[:pos], ix.entries[pos+1:]...)
	delete(ix.byOwner, ownerID)
	for i := pos; i < len(ix.entries); i++ {
		ix.byOwner[ix.entries[i].record.OwnerID] = i
	}
}

// Search embeds the query and returns up to topK matches ordered by ascending
// distance, ties broken by insertion order (earlier wins). An empty index
// yields an empty result, never an error. topK is clamped to the number of
// stored vectors.
func (ix *Index) Search(query string, topK int) []Match {
	return ix.SearchKind(query, topK, "")
}

// SearchKind is Search restricted to records of one entity kind; an empty
// kind matches everything.
func (ix *Index) SearchKind(query string, topK int, kind models.EntityKind) []Match {
	if topK <= 0 {
		return []Match{}
	}

	qvec := ix.embedder.Embed(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		m   Match
		seq uint64
	}

	candidates := make([]scored, 0, len(ix.entries))
	for _, e := range ix.entries {
		if kind != "" && e.record.Kind != kind {
			continue
		}
		candidates = append(candidates, scored{
			m: Match{
				OwnerID:  e.record.OwnerID,
				Kind:     e.record.Kind,
				Distance: l2Distance(qvec, e.record.Vector),
			},
			seq: e.seq,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].m.Distance != candidates[j].m.Distance {
			return candidates[i].m.Distance < candidates[j].m.Distance
		}
		return candidates[i].seq < candidates[j].seq
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	results := make([]Match, topK)
	for i := 0; i < topK; i++ {
		results[i] = candidates[i].m
	}
	return results
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Record returns a copy of the stored record for ownerID.
func (ix *Index) Record(ownerID string) (models.EmbeddingRecord, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	pos, ok := ix.byOwner[ownerID]
	if !ok {
		return models.EmbeddingRecord{}, false
	}
	rec := ix.entries[pos].record
	vec := make([]float32, len(rec.Vector))
	copy(vec, rec.Vector)
	rec.Vector = vec
	return rec, true
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
