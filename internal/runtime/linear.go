package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// linearSchema is the artifact schema this runtime understands.
const linearSchema = "linear/v1"

// LinearRuntime serves JSON weight artifacts: plain logistic regression or
// a single tanh hidden layer with a logistic output.
type LinearRuntime struct{}

func NewLinearRuntime() *LinearRuntime { return &LinearRuntime{} }

// linearModel is the on-disk weight layout.
type linearModel struct {
	Schema        string      `json:"schema"`
	Type          string      `json:"type"`
	FeatureCount  int         `json:"feature_count"`
	Weights       []float64   `json:"weights,omitempty"`
	Bias          float64     `json:"bias,omitempty"`
	HiddenWeights [][]float64 `json:"hidden_weights,omitempty"`
	HiddenBias    []float64   `json:"hidden_bias,omitempty"`
	OutputWeights []float64   `json:"output_weights,omitempty"`
	OutputBias    float64     `json:"output_bias,omitempty"`
	// EmitPair makes the session emit [1-p, p] instead of [p].
	EmitPair bool `json:"emit_pair,omitempty"`
}

func (r *LinearRuntime) Open(artifact []byte) (Session, error) {
	var m linearModel
	if err := json.Unmarshal(artifact, &m); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	if m.Schema != linearSchema {
		return nil, fmt.Errorf("unsupported artifact schema: %q", m.Schema)
	}
	if m.FeatureCount <= 0 {
		return nil, fmt.Errorf("invalid feature_count: %d", m.FeatureCount)
	}
	switch m.Type {
	case "logistic":
		if len(m.Weights) != m.FeatureCount {
			return nil, fmt.Errorf("weights length %d does not match feature_count %d", len(m.Weights), m.FeatureCount)
		}
	case "mlp":
		h := len(m.HiddenWeights)
		if h == 0 {
			return nil, fmt.Errorf("mlp artifact has no hidden layer")
		}
		for i, row := range m.HiddenWeights {
			if len(row) != m.FeatureCount {
				return nil, fmt.Errorf("hidden row %d width %d does not match feature_count %d", i, len(row), m.FeatureCount)
			}
		}
		if len(m.HiddenBias) != h || len(m.OutputWeights) != h {
			return nil, fmt.Errorf("hidden_bias/output_weights length must be %d", h)
		}
	default:
		return nil, fmt.Errorf("unsupported model type: %q", m.Type)
	}

	s := &linearSession{model: m}
	if m.Type == "mlp" {
		flat := make([]float64, 0, len(m.HiddenWeights)*m.FeatureCount)
		for _, row := range m.HiddenWeights {
			flat = append(flat, row...)
		}
		s.hidden = mat.NewDense(len(m.HiddenWeights), m.FeatureCount, flat)
	}
	return s, nil
}

type linearSession struct {
	model  linearModel
	hidden *mat.Dense
	closed atomic.Bool
}

func (s *linearSession) FeatureCount() int { return s.model.FeatureCount }

func (s *linearSession) Infer(ctx context.Context, features []float64) (Outputs, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("session closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(features) != s.model.FeatureCount {
		return nil, fmt.Errorf("feature vector width %d does not match model width %d", len(features), s.model.FeatureCount)
	}

	x := mat.NewVecDense(len(features), features)
	var z float64
	switch s.model.Type {
	case "logistic":
		w := mat.NewVecDense(len(s.model.Weights), s.model.Weights)
		z = mat.Dot(w, x) + s.model.Bias
	case "mlp":
		var hv mat.VecDense
		hv.MulVec(s.hidden, x)
		for i := 0; i < hv.Len(); i++ {
			hv.SetVec(i, math.Tanh(hv.AtVec(i)+s.model.HiddenBias[i]))
		}
		out := mat.NewVecDense(len(s.model.OutputWeights), s.model.OutputWeights)
		z = mat.Dot(out, &hv) + s.model.OutputBias
	}

	p := sigmoid(z)
	values := []float64{p}
	if s.model.EmitPair {
		values = []float64{1 - p, p}
	}
	return Outputs{ProbabilityOutput: values}, nil
}

func (s *linearSession) Close() error {
	s.closed.Store(true)
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
