package domain

// SparseVector is a named term-frequency vector over the vocabulary index
// space. Indices and Values are parallel and always the same length.
type SparseVector struct {
	Name    string    `json:"name"`
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v *SparseVector) IsEmpty() bool {
	return v == nil || len(v.Indices) == 0
}

// Vocabulary is the fixed stemmed-term to index mapping produced at
// ingestion time. Loaded once at process start and never mutated.
type Vocabulary map[string]uint32

func (v Vocabulary) Lookup(term string) (uint32, bool) {
	idx, ok := v[term]
	return idx, ok
}
