package domain

// EvaluationResult scores one generation attempt. All score dimensions are
// clamped to [0,1].
type EvaluationResult struct {
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Completeness float64 `json:"completeness"`
	Coherence    float64 `json:"coherence"`
	Overall      float64 `json:"overall"`
	Reasoning    string  `json:"reasoning"`
	IsGrounded   bool    `json:"is_grounded"`
	Answer       string  `json:"answer"`
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (r *EvaluationResult) ClampScores() {
	r.Accuracy = Clamp01(r.Accuracy)
	r.Relevance = Clamp01(r.Relevance)
	r.Completeness = Clamp01(r.Completeness)
	r.Coherence = Clamp01(r.Coherence)
	r.Overall = Clamp01(r.Overall)
}
