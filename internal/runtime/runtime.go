package runtime

import "context"

// Runtime abstracts the model format used by the serving engine.
// Concrete implementations build sessions from raw artifact bytes.
type Runtime interface {
	// Open parses an artifact and prepares a session for inference.
	Open(artifact []byte) (Session, error)
}

// Session is a loaded model ready to score feature vectors.
type Session interface {
	// Infer scores one ordered feature vector and returns named outputs.
	// Implementations must return promptly when the context is canceled.
	Infer(ctx context.Context, features []float64) (Outputs, error)
	// FeatureCount reports the input width the model expects.
	FeatureCount() int
	// Close releases any resources associated with the session.
	Close() error
}

// Outputs maps output names to their values.
type Outputs map[string][]float64

// ProbabilityOutput is the conventional name for classifier scores.
const ProbabilityOutput = "probabilities"

// Primary returns the probability output, falling back to the sole output
// for models that use a custom name. ok is false when the session emitted
// nothing usable.
func (o Outputs) Primary() ([]float64, bool) {
	if v, ok := o[ProbabilityOutput]; ok && len(v) > 0 {
		return v, true
	}
	if len(o) == 1 {
		for _, v := range o {
			if len(v) > 0 {
				return v, true
			}
		}
	}
	return nil, false
}
