// Package classifier implements the multi-class identity classifier:
// multinomial logistic regression fitted by batch gradient descent.
// The model is refit in full from the embedding store on every
// enrollment; there is no online updating.
package classifier

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrInsufficientData is returned by Fit when fewer than two
	// distinct labels are present: a single-identity system has
	// nothing to discriminate between.
	ErrInsufficientData = errors.New("at least two distinct labels are required")

	// ErrUntrained is returned by Predict before the first successful Fit.
	ErrUntrained = errors.New("classifier has not been trained")

	// ErrDimensionMismatch is returned when a query vector does not
	// match the training dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Training hyperparameters. Embeddings are near-unit-norm vectors, so
// a fairly aggressive learning rate converges quickly.
const (
	epochs       = 300
	learningRate = 0.5
	l2Penalty    = 1e-4
)

// Softmax is a multi-class probabilistic classifier over identity
// labels. Probabilities are calibrated softmax mass, not distances.
type Softmax struct {
	mu      sync.RWMutex
	path    string
	classes []int64     // class index -> identity label
	weights [][]float64 // [class][dim+1], last column is the bias
	dim     int
}

// model is the on-disk gob layout of a fitted classifier.
type model struct {
	Classes []int64
	Weights [][]float64
	Dim     int
}

func NewSoftmax(path string) *Softmax {
	return &Softmax{path: path}
}

// Trained reports whether the classifier holds a fitted model.
func (c *Softmax) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes) >= 2
}

// Fit trains the classifier from scratch on the given vectors and
// labels. Requires at least two distinct labels.
func (c *Softmax) Fit(vectors [][]float64, labels []int64) error {
	if len(vectors) != len(labels) {
		return fmt.Errorf("fit: %d vectors for %d labels", len(vectors), len(labels))
	}
	if len(vectors) == 0 {
		return ErrInsufficientData
	}

	classes := distinctLabels(labels)
	if len(classes) < 2 {
		return ErrInsufficientData
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("fit: vector %d has dimension %d, want %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}

	classIndex := make(map[int64]int, len(classes))
	for i, label := range classes {
		classIndex[label] = i
	}

	weights := make([][]float64, len(classes))
	for i := range weights {
		weights[i] = make([]float64, dim+1)
	}

	n := float64(len(vectors))
	grads := make([][]float64, len(classes))
	for i := range grads {
		grads[i] = make([]float64, dim+1)
	}

	for epoch := 0; epoch < epochs; epoch++ {
		for i := range grads {
			for j := range grads[i] {
				grads[i][j] = 0
			}
		}

		for i, v := range vectors {
			probs := scores(weights, v)
			target := classIndex[labels[i]]
			for k := range weights {
				delta := probs[k]
				if k == target {
					delta -= 1
				}
				g := grads[k]
				for j, x := range v {
					g[j] += delta * x
				}
				g[dim] += delta
			}
		}

		for k := range weights {
			w := weights[k]
			g := grads[k]
			for j := range w {
				w[j] -= learningRate * (g[j]/n + l2Penalty*w[j])
			}
		}
	}

	c.mu.Lock()
	c.classes = classes
	c.weights = weights
	c.dim = dim
	c.mu.Unlock()
	return nil
}

// PredictWithConfidence returns the best-scoring label and its softmax
// probability mass for a query embedding.
func (c *Softmax) PredictWithConfidence(vector []float64) (int64, float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.classes) < 2 {
		return 0, 0, ErrUntrained
	}
	if len(vector) != c.dim {
		return 0, 0, fmt.Errorf("predict: got dimension %d, want %d: %w", len(vector), c.dim, ErrDimensionMismatch)
	}

	probs := scores(c.weights, vector)
	best := 0
	for k, p := range probs {
		if p > probs[best] {
			best = k
		}
	}
	return c.classes[best], probs[best], nil
}

// Save persists the fitted model atomically (temp file + rename).
func (c *Softmax) Save() error {
	c.mu.RLock()
	m := model{
		Classes: append([]int64(nil), c.classes...),
		Weights: append([][]float64(nil), c.weights...),
		Dim:     c.dim,
	}
	c.mu.RUnlock()

	if len(m.Classes) < 2 {
		return ErrUntrained
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "classifier-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := gob.NewEncoder(tmp).Encode(m); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp model: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}

// Load restores fitted parameters from disk. An absent file leaves the
// classifier untrained and is not an error.
func (c *Softmax) Load() error {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open model %s: %w", c.path, err)
	}
	defer func() { _ = f.Close() }()

	var m model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return fmt.Errorf("decode model %s: %w", c.path, err)
	}
	if len(m.Classes) != len(m.Weights) {
		return fmt.Errorf("corrupt model %s: %d classes for %d weight rows", c.path, len(m.Classes), len(m.Weights))
	}

	c.mu.Lock()
	c.classes = m.Classes
	c.weights = m.Weights
	c.dim = m.Dim
	c.mu.Unlock()
	return nil
}

// scores computes the softmax distribution of one vector against the
// weight matrix, with the usual max subtraction for stability.
func scores(weights [][]float64, vector []float64) []float64 {
	dim := len(vector)
	logits := make([]float64, len(weights))
	for k, w := range weights {
		z := w[dim]
		for j, x := range vector {
			z += w[j] * x
		}
		logits[k] = z
	}

	maxLogit := logits[0]
	for _, z := range logits[1:] {
		if z > maxLogit {
			maxLogit = z
		}
	}

	sum := 0.0
	for k, z := range logits {
		e := math.Exp(z - maxLogit)
		logits[k] = e
		sum += e
	}
	for k := range logits {
		logits[k] /= sum
	}
	return logits
}

func distinctLabels(labels []int64) []int64 {
	seen := make(map[int64]struct{}, len(labels))
	classes := make([]int64, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	return classes
}
