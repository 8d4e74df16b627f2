// Package scoring ranks documents with Okapi BM25, fed segment-local
// collection statistics.
package scoring

import (
	"fmt"
	"math"
)

// Standard BM25 parameter defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25Scorer scores term/document pairs against one segment's statistics;
// there is no cross-segment statistic merging yet.
type BM25Scorer struct {
	K1 float32
	B  float32

	DocCount  int64
	AvgDocLen float32
}

// NewBM25Scorer builds a scorer with default k1/b over the given stats.
func NewBM25Scorer(docCount int64, avgDocLen float32) *BM25Scorer {
	return &BM25Scorer{
		K1:        DefaultK1,
		B:         DefaultB,
		DocCount:  docCount,
		AvgDocLen: avgDocLen,
	}
}

// IDF is the term's inverse document frequency:
//
//	IDF(qi) = ln(1 + (N - n(qi) + 0.5) / (n(qi) + 0.5))
func (s *BM25Scorer) IDF(docFreq int64) float32 {
	n := float64(docFreq)
	N := float64(s.DocCount)
	return float32(math.Log(1 + (N - n + 0.5) / (n + 0.5)))
}

// Score is the single-term BM25 contribution:
//
//	score = IDF × (tf × (k1 + 1)) / (tf + k1 × (1 - b + b × dl / avgdl))
func (s *BM25Scorer) Score(termFreq uint32, docLen uint32, idf float32) float32 {
	tf := float32(termFreq)
	dl := float32(docLen)

	numerator := tf * (s.K1 + 1)
	denominator := tf + s.K1*(1-s.B+s.B*dl/s.AvgDocLen)

	if denominator == 0 {
		return 0
	}
	return idf * numerator / denominator
}

// ScoreMultiTerm sums boosted per-term contributions for one document.
func (s *BM25Scorer) ScoreMultiTerm(terms []QueryTerm, docLen uint32) float32 {
	var total float32
	for _, qt := range terms {
		if qt.TermFreq == 0 {
			continue
		}
		idf := s.IDF(qt.DocFreq)
		total += s.Score(qt.TermFreq, docLen, idf) * qt.Boost
	}
	return total
}

// QueryTerm bundles one term's scoring inputs.
type QueryTerm struct {
	Term     string
	TermFreq uint32
	DocFreq  int64
	Boost    float32
}

// Explanation is a human-readable score breakdown, nested per factor.
type Explanation struct {
	Description string        `json:"description"`
	Value       float32       `json:"value"`
	Details     []Explanation `json:"details,omitempty"`
}

// Explain breaks one term's BM25 score into its idf, tf-normalization,
// and length-normalization factors.
func (s *BM25Scorer) Explain(field, term string, termFreq uint32, docLen uint32, docFreq int64) Explanation {
	idf := s.IDF(docFreq)
	score := s.Score(termFreq, docLen, idf)

	tf := float32(termFreq)
	dl := float32(docLen)
	tfNorm := tf * (s.K1 + 1) / (tf + s.K1*(1-s.B+s.B*dl/s.AvgDocLen))

	return Explanation{
		Description: fmt.Sprintf("weight(%s:%s) [BM25]", field, term),
		Value:       score,
		Details: []Explanation{
			{
				Description: fmt.Sprintf("idf(docFreq=%d, N=%d)", docFreq, s.DocCount),
				Value:       idf,
			},
			{
				Description: fmt.Sprintf("tf(freq=%d, norm=%.4f)", termFreq, tfNorm),
				Value:       tfNorm,
			},
			{
				Description: fmt.Sprintf("dl=%d, avgdl=%.1f", docLen, s.AvgDocLen),
				Value:       s.B * dl / s.AvgDocLen,
			},
		},
	}
}
