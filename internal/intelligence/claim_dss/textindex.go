package claim_dss

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// tokenPattern keeps alphanumeric tokens of two or more characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// stopWords is a compact English list. It must not contain description
// labels such as "use", "area" or "type".
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at
		be because been before being below between both but by can did do does doing down during each
		few for from further had has have having he her here hers herself him himself his how i if in
		into is it its itself just me more most my myself no nor not now of off on once only or other
		our ours ourselves out over own same she should so some such than that the their theirs them
		themselves then there these they this those through to too under until up very was we were what
		when where which while who whom why will with you your yours yourself yourselves`) {
		stopWords[w] = struct{}{}
	}
}

// Tokenize lowercases text and returns its non-stop-word tokens in order.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopWords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// TextIndex is a fitted TF-IDF vectorizer: raw term counts weighted by a
// smoothed inverse document frequency, then L2 normalized.
type TextIndex struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	MaxFeatures int            `json:"max_features"`
}

// FitTextIndex builds the vocabulary from docs, keeping at most maxFeatures
// terms ranked by total corpus frequency (ties alphabetical).
func FitTextIndex(docs []string, maxFeatures int) (*TextIndex, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("text index: empty corpus")
	}
	termFreq := map[string]int{}
	docFreq := map[string]int{}
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, t := range Tokenize(doc) {
			termFreq[t]++
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}
	if len(termFreq) == 0 {
		return nil, fmt.Errorf("text index: corpus has no terms")
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idx := &TextIndex{
		Vocabulary:  make(map[string]int, len(terms)),
		IDF:         make([]float64, len(terms)),
		MaxFeatures: maxFeatures,
	}
	for i, t := range terms {
		idx.Vocabulary[t] = i
		idx.IDF[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return idx, nil
}

// Transform returns the dense, L2-normalized TF-IDF vector for text. Text with
// no known terms maps to the zero vector.
func (x *TextIndex) Transform(text string) []float64 {
	v := make([]float64, len(x.IDF))
	for _, t := range Tokenize(text) {
		if i, ok := x.Vocabulary[t]; ok {
			v[i]++
		}
	}
	floats.Mul(v, x.IDF)
	if norm := floats.Norm(v, 2); norm > 0 {
		floats.Scale(1/norm, v)
	}
	return v
}

// Cosine is the cosine similarity of two vectors produced by Transform,
// clamped to [0, 1].
func Cosine(a, b []float64) float64 {
	return clip01(floats.Dot(a, b))
}

func (x *TextIndex) validate() error {
	if len(x.Vocabulary) == 0 || len(x.Vocabulary) != len(x.IDF) {
		return fmt.Errorf("text index: %d terms for %d weights", len(x.Vocabulary), len(x.IDF))
	}
	seen := make([]bool, len(x.IDF))
	for t, i := range x.Vocabulary {
		if i < 0 || i >= len(x.IDF) || seen[i] {
			return fmt.Errorf("text index: term %q has invalid column %d", t, i)
		}
		seen[i] = true
	}
	if !allFinite(x.IDF) {
		return fmt.Errorf("text index: non-finite weights")
	}
	return nil
}
