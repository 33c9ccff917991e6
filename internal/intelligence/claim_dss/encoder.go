// Package claim_dss implements the Forest Rights claim decision-support
// engine: feature encoding, synthetic corpus generation, model training and
// persistence, decision and risk prediction, precedent retrieval and
// rationale generation.
package claim_dss

import (
	"sort"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// FeatureVector is an encoded claim. Its length and column order are fixed by
// the static vocabularies, independent of the record being encoded.
type FeatureVector []float64

type categoricalBlock struct {
	field  string
	offset int
	// column offset within the block, keyed by raw vocabulary value
	index map[string]int
}

// FeatureEncoder turns a claim.Record into a FeatureVector: the numeric fields
// in declared order, then one one-hot block per categorical field with
// columns sorted by their "field_value" label.
type FeatureEncoder struct {
	columns []string
	blocks  []categoricalBlock
}

// NewFeatureEncoder builds the encoder from the static vocabularies.
func NewFeatureEncoder() *FeatureEncoder {
	e := &FeatureEncoder{}
	e.columns = append(e.columns, claim.NumericFields...)

	for _, f := range claim.CategoricalFields {
		labels := make([]string, len(f.Vocabulary))
		byLabel := make(map[string]string, len(f.Vocabulary))
		for i, v := range f.Vocabulary {
			labels[i] = f.Name + "_" + v
			byLabel[labels[i]] = v
		}
		sort.Strings(labels)

		block := categoricalBlock{
			field:  f.Name,
			offset: len(e.columns),
			index:  make(map[string]int, len(labels)),
		}
		for i, l := range labels {
			block.index[byLabel[l]] = i
		}
		e.columns = append(e.columns, labels...)
		e.blocks = append(e.blocks, block)
	}
	return e
}

// defaultEncoder is shared; FeatureEncoder is immutable after construction.
var defaultEncoder = NewFeatureEncoder()

// FeatureDim is the encoded vector length (20 for the documented schema).
var FeatureDim = defaultEncoder.Dim()

// Dim returns the vector length.
func (e *FeatureEncoder) Dim() int { return len(e.columns) }

// Columns returns a copy of the column labels in vector order.
func (e *FeatureEncoder) Columns() []string {
	out := make([]string, len(e.columns))
	copy(out, e.columns)
	return out
}

// Encode maps r to its FeatureVector. A categorical value outside the
// vocabulary leaves its block all zero; see claim.Record.UnknownCategories.
func (e *FeatureEncoder) Encode(r claim.Record) FeatureVector {
	v := make(FeatureVector, len(e.columns))
	copy(v, r.NumericValues())
	for _, b := range e.blocks {
		if i, ok := b.index[r.Categorical(b.field)]; ok {
			v[b.offset+i] = 1
		}
	}
	return v
}

// EncodeAll encodes each record independently.
func (e *FeatureEncoder) EncodeAll(records []claim.Record) [][]float64 {
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = e.Encode(r)
	}
	return out
}
