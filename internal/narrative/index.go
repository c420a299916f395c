package narrative

import (
	"fmt"
	"sort"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// Index maintains one feature vector per SAR and answers nearest-neighbor
// similarity queries over them. Not safe for concurrent use on its own; the
// service engine serializes access together with the graph store.
type Index struct {
	vectorizer Vectorizer
	vectors    map[string][]float64
}

// NewIndex creates an index backed by the given vectorization strategy
func NewIndex(v Vectorizer) *Index {
	return &Index{
		vectorizer: v,
		vectors:    make(map[string][]float64),
	}
}

// Add extracts and stores the feature vector for a SAR narrative
func (idx *Index) Add(sarID, narrative string) {
	idx.vectors[sarID] = idx.vectorizer.Vectorize(narrative)
}

// Has reports whether a SAR has been indexed
func (idx *Index) Has(sarID string) bool {
	_, ok := idx.vectors[sarID]
	return ok
}

// Len returns the number of indexed narratives
func (idx *Index) Len() int {
	return len(idx.vectors)
}

// Match is one similarity result
type Match struct {
	SARID      string
	Similarity float64
}

// SimilarTo returns every other SAR whose cosine similarity to the query
// meets the threshold, sorted descending by similarity. Ties are broken by
// earlier filing date via filedAt.
func (idx *Index) SimilarTo(sarID string, threshold float64, filedAt func(string) time.Time) ([]Match, error) {
	query, ok := idx.vectors[sarID]
	if !ok {
		return nil, fmt.Errorf("sar %q: %w", sarID, domain.ErrNotFound)
	}

	matches := []Match{}
	for otherID, vec := range idx.vectors {
		if otherID == sarID {
			continue
		}
		if sim := cosine(query, vec); sim >= threshold {
			matches = append(matches, Match{SARID: otherID, Similarity: sim})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return filedAt(matches[i].SARID).Before(filedAt(matches[j].SARID))
	})
	return matches, nil
}
