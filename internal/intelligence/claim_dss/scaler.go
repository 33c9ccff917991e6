package claim_dss

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes each column to zero mean and unit population
// variance. Columns with zero variance keep a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns per-column statistics from X (rows are samples).
func FitStandardScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("scaler: empty matrix")
	}
	d := len(X[0])
	s := &StandardScaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			if len(row) != d {
				return nil, fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), d)
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = 1
		if variance > 0 {
			s.Scale[j] = sqrt(variance)
		}
	}
	return s, nil
}

// Dim is the column count the scaler was fitted on.
func (s *StandardScaler) Dim() int { return len(s.Mean) }

// Transform returns a standardized copy of x.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll standardizes every row of X.
func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

func (s *StandardScaler) validate(dim int) error {
	if len(s.Mean) != dim || len(s.Scale) != dim {
		return fmt.Errorf("scaler: got %d/%d columns, want %d", len(s.Mean), len(s.Scale), dim)
	}
	for j, sc := range s.Scale {
		if !(sc > 0) || !finite(sc) || !finite(s.Mean[j]) {
			return fmt.Errorf("scaler: column %d has invalid statistics", j)
		}
	}
	return nil
}
