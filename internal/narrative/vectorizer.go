package narrative

import (
	"math"
	"strings"
	"unicode"
)

// Vectorizer turns a narrative into a feature vector. It is the replaceable
// strategy behind narrative similarity: the ranking logic never looks inside
// the vector, so a learned embedder can be substituted without touching it.
type Vectorizer interface {
	Vectorize(text string) []float64
}

// stop words excluded from the term-frequency space
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "which": {}, "with": {},
}

// TermFrequencyVectorizer maps narratives onto term-frequency vectors over
// an incrementally grown vocabulary. Vectors produced before a vocabulary
// grew are shorter; cosine treats the missing dimensions as zero.
// Not safe for concurrent use; the engine serializes writes.
type TermFrequencyVectorizer struct {
	vocab map[string]int
}

// NewTermFrequencyVectorizer creates a vectorizer with an empty vocabulary
func NewTermFrequencyVectorizer() *TermFrequencyVectorizer {
	return &TermFrequencyVectorizer{vocab: make(map[string]int)}
}

// Vectorize tokenizes the text and returns its term-frequency vector,
// growing the vocabulary with any unseen tokens.
func (v *TermFrequencyVectorizer) Vectorize(text string) []float64 {
	tokens := tokenize(text)
	for _, tok := range tokens {
		if _, known := v.vocab[tok]; !known {
			v.vocab[tok] = len(v.vocab)
		}
	}
	vec := make([]float64, len(v.vocab))
	for _, tok := range tokens {
		vec[v.vocab[tok]]++
	}
	return vec
}

// tokenize lower-cases, strips punctuation and drops stop words
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := stopWords[f]; !skip {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// cosine computes cosine similarity, treating dimensions beyond a vector's
// length as zero. A zero vector has similarity 0 with everything, never NaN.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		normA += x * x
	}
	for _, x := range b {
		normB += x * x
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
