package claim_dss

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RidgeRegressor is an L2-regularized linear model with an unpenalized
// intercept.
type RidgeRegressor struct {
	Kind      string    `json:"kind"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Alpha     float64   `json:"alpha"`
}

const (
	kindRidge         = "ridge_regressor"
	DefaultRidgeAlpha = 1.0
)

// FitRidgeRegressor solves (XcᵀXc + αI)w = Xcᵀ(y - ȳ) where Xc is X with
// column means removed.
func FitRidgeRegressor(X [][]float64, y []float64, alpha float64) (*RidgeRegressor, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("regressor: %d rows for %d targets", n, len(y))
	}
	d := len(X[0])

	xMean := make([]float64, d)
	for _, row := range X {
		floats.Add(xMean, row)
	}
	floats.Scale(1/float64(n), xMean)
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(n, d, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, fmt.Errorf("regressor: normal equations are not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return nil, fmt.Errorf("regressor: solve: %w", err)
	}

	coef := make([]float64, d)
	for j := range coef {
		coef[j] = w.AtVec(j)
	}
	return &RidgeRegressor{
		Kind:      kindRidge,
		Coef:      coef,
		Intercept: yMean - floats.Dot(coef, xMean),
		Alpha:     alpha,
	}, nil
}

// Predict returns the raw, unclipped prediction for x.
func (m *RidgeRegressor) Predict(x []float64) float64 {
	return floats.Dot(m.Coef, x) + m.Intercept
}

func (m *RidgeRegressor) validate(dim int) error {
	if m.Kind != kindRidge {
		return fmt.Errorf("regressor: unexpected kind %q", m.Kind)
	}
	if len(m.Coef) != dim {
		return fmt.Errorf("regressor: %d coefficients, want %d", len(m.Coef), dim)
	}
	if !allFinite(m.Coef) || !finite(m.Intercept) {
		return fmt.Errorf("regressor: non-finite parameters")
	}
	return nil
}
