// Package encode turns free text into the sparse.Vector shape the
// sparse package indexes: a fixed vocabulary mapped to ascending
// feature indices, with BM25 and TF-IDF weighting, reshaped to emit
// sparse.Vector instead of a term-keyed map, and with no internal
// locking, matching this module's single-threaded design (see doc.go).
package encode

import (
	"math"
	"sort"
	"strings"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/sparse"
)

// stopWords is a minimal English/Chinese stop list.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"this": true, "that": true, "these": true, "those": true,
	"我": true, "你": true, "他": true, "她": true, "它": true,
	"的": true, "了": true, "是": true, "在": true, "有": true,
	"和": true, "与": true, "或": true, "但": true, "不": true,
}

// Tokenize lowercases text, splits it on whitespace, and drops stop
// words and one-byte terms. The length check counts bytes, so a single
// multi-byte character (a lone CJK ideograph, say) is kept.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.Fields(text)

	terms := make([]string, 0, len(words))
	for _, w := range words {
		if !stopWords[w] && len(w) > 1 {
			terms = append(terms, w)
		}
	}
	return terms
}

// vocabulary assigns each term a stable, ascending feature index in
// first-seen order, the shape sparse.Vector.Indices requires.
type vocabulary struct {
	index map[string]uint32
	terms []string
}

func newVocabulary() *vocabulary {
	return &vocabulary{index: make(map[string]uint32)}
}

func (v *vocabulary) intern(term string) uint32 {
	if idx, ok := v.index[term]; ok {
		return idx
	}
	idx := uint32(len(v.terms))
	v.index[term] = idx
	v.terms = append(v.terms, term)
	return idx
}

func (v *vocabulary) lookup(term string) (uint32, bool) {
	idx, ok := v.index[term]
	return idx, ok
}

// toVector sorts a term->weight map by feature index (sparse.Vector
// requires strictly ascending indices) and packs it into parallel
// arrays.
func toVector(weights map[uint32]float64, dim uint32) sparse.Vector {
	indices := make([]uint32, 0, len(weights))
	for idx := range weights {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(weights[idx])
	}
	return sparse.Vector{Indices: indices, Values: values, Dim: dim}
}

// BM25Encoder fits a fixed vocabulary and IDF table over a training
// corpus, then encodes new documents into sparse.Vector using the
// Okapi BM25 weighting scheme.
type BM25Encoder struct {
	vocab     *vocabulary
	idf       map[string]float64
	avgDocLen float64
	k1        float64
	b         float64
	fitted    bool
}

// NewBM25Encoder returns an unfitted encoder with the conventional
// k1=1.2, b=0.75 parameters.
func NewBM25Encoder() *BM25Encoder {
	return NewBM25EncoderWithParams(1.2, 0.75)
}

// NewBM25EncoderWithParams returns an unfitted encoder with custom
// term-frequency saturation (k1) and length-normalisation (b) parameters.
func NewBM25EncoderWithParams(k1, b float64) *BM25Encoder {
	return &BM25Encoder{vocab: newVocabulary(), idf: make(map[string]float64), k1: k1, b: b}
}

// Fit computes IDF values and the fixed vocabulary from a training
// corpus. Calling Fit again replaces the encoder's state entirely.
func (e *BM25Encoder) Fit(documents []string) error {
	if len(documents) == 0 {
		return apperr.New("encode.BM25Encoder.Fit", apperr.InvalidInput, errEmptyCorpus)
	}

	e.vocab = newVocabulary()
	e.idf = make(map[string]float64)
	docFreq := make(map[string]int)
	totalLen := 0.0

	for _, doc := range documents {
		terms := Tokenize(doc)
		totalLen += float64(len(terms))

		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			e.vocab.intern(term)
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	n := float64(len(documents))
	for term, df := range docFreq {
		e.idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}
	e.avgDocLen = totalLen / n
	e.fitted = true
	return nil
}

// Dimensions returns the fitted vocabulary size, the Dim every
// sparse.Vector this encoder produces is stamped with.
func (e *BM25Encoder) Dimensions() int { return len(e.vocab.terms) }

// Encode converts text into a BM25-weighted sparse.Vector over the
// fitted vocabulary. Terms absent from the vocabulary are dropped, so
// every emitted index stays within [0, Dim).
func (e *BM25Encoder) Encode(text string) (sparse.Vector, error) {
	if !e.fitted {
		return sparse.Vector{}, apperr.New("encode.BM25Encoder.Encode", apperr.InvalidParameter, errNotFitted)
	}

	terms := Tokenize(text)
	docLen := float64(len(terms))
	if docLen == 0 {
		return sparse.Vector{Dim: uint32(e.Dimensions())}, nil
	}

	termFreq := make(map[string]int, len(terms))
	for _, term := range terms {
		termFreq[term]++
	}

	weights := make(map[uint32]float64, len(termFreq))
	for term, tf := range termFreq {
		idx, ok := e.vocab.lookup(term)
		if !ok {
			continue
		}
		idf, ok := e.idf[term]
		if !ok {
			idf = 1.0
		}
		numerator := float64(tf) * (e.k1 + 1)
		denominator := float64(tf) + e.k1*(1-e.b+e.b*(docLen/e.avgDocLen))
		weights[idx] = idf * (numerator / denominator)
	}

	return toVector(weights, uint32(e.Dimensions())), nil
}

// TFIDFEncoder fits a fixed vocabulary and IDF table over a training
// corpus, then encodes new documents into sparse.Vector using term
// frequency times inverse document frequency.
type TFIDFEncoder struct {
	vocab       *vocabulary
	idf         map[string]float64
	sublinearTF bool
	fitted      bool
}

// NewTFIDFEncoder returns an unfitted encoder using raw term counts.
func NewTFIDFEncoder() *TFIDFEncoder {
	return &TFIDFEncoder{vocab: newVocabulary(), idf: make(map[string]float64)}
}

// NewTFIDFEncoderWithSublinearTF returns an unfitted encoder using
// 1+log(tf) term-frequency scaling instead of raw counts.
func NewTFIDFEncoderWithSublinearTF() *TFIDFEncoder {
	return &TFIDFEncoder{vocab: newVocabulary(), idf: make(map[string]float64), sublinearTF: true}
}

// Fit computes IDF values and the fixed vocabulary from a training
// corpus. Calling Fit again replaces the encoder's state entirely.
func (e *TFIDFEncoder) Fit(documents []string) error {
	if len(documents) == 0 {
		return apperr.New("encode.TFIDFEncoder.Fit", apperr.InvalidInput, errEmptyCorpus)
	}

	e.vocab = newVocabulary()
	e.idf = make(map[string]float64)
	docFreq := make(map[string]int)

	for _, doc := range documents {
		terms := Tokenize(doc)
		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			e.vocab.intern(term)
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	n := float64(len(documents))
	for term, df := range docFreq {
		e.idf[term] = math.Log(n / float64(df))
	}
	e.fitted = true
	return nil
}

// Dimensions returns the fitted vocabulary size.
func (e *TFIDFEncoder) Dimensions() int { return len(e.vocab.terms) }

// Encode converts text into a TF-IDF-weighted sparse.Vector over the
// fitted vocabulary.
func (e *TFIDFEncoder) Encode(text string) (sparse.Vector, error) {
	if !e.fitted {
		return sparse.Vector{}, apperr.New("encode.TFIDFEncoder.Encode", apperr.InvalidParameter, errNotFitted)
	}

	terms := Tokenize(text)
	termFreq := make(map[string]int, len(terms))
	for _, term := range terms {
		termFreq[term]++
	}

	weights := make(map[uint32]float64, len(termFreq))
	for term, tf := range termFreq {
		idx, ok := e.vocab.lookup(term)
		if !ok {
			continue
		}
		idf, ok := e.idf[term]
		if !ok {
			continue
		}
		tfVal := float64(tf)
		if e.sublinearTF {
			tfVal = 1 + math.Log(tfVal)
		}
		weights[idx] = tfVal * idf
	}

	return toVector(weights, uint32(e.Dimensions())), nil
}
