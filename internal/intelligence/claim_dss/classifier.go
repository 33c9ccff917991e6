package claim_dss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ---------------------------------------------------------------------------
// Softmax classifier
// ---------------------------------------------------------------------------

// ClassifierOptions control batch gradient descent.
type ClassifierOptions struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	L2           float64 `json:"l2"`
	// Balanced weights each class by n / (k * n_class).
	Balanced bool `json:"balanced"`
}

// DefaultClassifierOptions are used for the decision model.
func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{Epochs: 300, LearningRate: 0.5, L2: 1e-3, Balanced: true}
}

// SoftmaxClassifier is a multinomial logistic regression over standardized
// features.
type SoftmaxClassifier struct {
	Kind    string            `json:"kind"`
	Classes []DecisionClass   `json:"classes"`
	Weights [][]float64       `json:"weights"`
	Bias    []float64         `json:"bias"`
	Options ClassifierOptions `json:"options"`
}

const kindSoftmax = "softmax_classifier"

// FitSoftmaxClassifier trains on X (standardized rows) and class indices y
// into classes.
func FitSoftmaxClassifier(X [][]float64, y []int, classes []DecisionClass, opts ClassifierOptions) (*SoftmaxClassifier, error) {
	n, k := len(X), len(classes)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("classifier: %d rows for %d labels", n, len(y))
	}
	if k < 2 {
		return nil, fmt.Errorf("classifier: need at least 2 classes, got %d", k)
	}
	d := len(X[0])

	counts := make([]float64, k)
	for _, c := range y {
		if c < 0 || c >= k {
			return nil, fmt.Errorf("classifier: label %d out of range", c)
		}
		counts[c]++
	}
	classWeight := make([]float64, k)
	for c := range classWeight {
		classWeight[c] = 1
		if opts.Balanced && counts[c] > 0 {
			classWeight[c] = float64(n) / (float64(k) * counts[c])
		}
	}
	var totalWeight float64
	for _, c := range y {
		totalWeight += classWeight[c]
	}

	m := &SoftmaxClassifier{
		Kind:    kindSoftmax,
		Classes: append([]DecisionClass(nil), classes...),
		Weights: make([][]float64, k),
		Bias:    make([]float64, k),
		Options: opts,
	}
	gradW := make([][]float64, k)
	for c := range m.Weights {
		m.Weights[c] = make([]float64, d)
		gradW[c] = make([]float64, d)
	}
	gradB := make([]float64, k)
	p := make([]float64, k)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for c := range gradW {
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
			gradB[c] = 0
		}
		for i, x := range X {
			m.probabilities(x, p)
			w := classWeight[y[i]]
			for c := 0; c < k; c++ {
				g := p[c]
				if c == y[i] {
					g -= 1
				}
				g *= w
				floats.AddScaled(gradW[c], g, x)
				gradB[c] += g
			}
		}
		for c := 0; c < k; c++ {
			floats.Scale(1/totalWeight, gradW[c])
			floats.AddScaled(gradW[c], opts.L2, m.Weights[c])
			floats.AddScaled(m.Weights[c], -opts.LearningRate, gradW[c])
			m.Bias[c] -= opts.LearningRate * gradB[c] / totalWeight
		}
	}
	return m, nil
}

// probabilities writes softmax(Wx + b) into p.
func (m *SoftmaxClassifier) probabilities(x, p []float64) {
	for c := range m.Weights {
		p[c] = floats.Dot(m.Weights[c], x) + m.Bias[c]
	}
	maxLogit := floats.Max(p)
	var sum float64
	for c := range p {
		p[c] = math.Exp(p[c] - maxLogit)
		sum += p[c]
	}
	floats.Scale(1/sum, p)
}

// PredictProba returns one probability per class, in Classes order.
func (m *SoftmaxClassifier) PredictProba(x []float64) []float64 {
	p := make([]float64, len(m.Classes))
	m.probabilities(x, p)
	return p
}

// Predict returns the arg-max class and its probability. Ties resolve to the
// earlier class.
func (m *SoftmaxClassifier) Predict(x []float64) (DecisionClass, float64, []float64) {
	p := m.PredictProba(x)
	best := floats.MaxIdx(p)
	return m.Classes[best], p[best], p
}

func (m *SoftmaxClassifier) validate(dim int) error {
	if m.Kind != kindSoftmax {
		return fmt.Errorf("classifier: unexpected kind %q", m.Kind)
	}
	if len(m.Classes) != len(DecisionClasses) {
		return fmt.Errorf("classifier: %d classes, want %d", len(m.Classes), len(DecisionClasses))
	}
	for i, c := range m.Classes {
		if c != DecisionClasses[i] {
			return fmt.Errorf("classifier: class %d is %q, want %q", i, c, DecisionClasses[i])
		}
	}
	if len(m.Weights) != len(m.Classes) || len(m.Bias) != len(m.Classes) {
		return fmt.Errorf("classifier: parameter shape does not match classes")
	}
	for c, w := range m.Weights {
		if len(w) != dim {
			return fmt.Errorf("classifier: class %d has %d weights, want %d", c, len(w), dim)
		}
		if !allFinite(w) || !finite(m.Bias[c]) {
			return fmt.Errorf("classifier: class %d has non-finite parameters", c)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Numeric helpers
// ---------------------------------------------------------------------------

func sqrt(v float64) float64 { return math.Sqrt(v) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
