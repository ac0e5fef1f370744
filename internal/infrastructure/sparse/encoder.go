package sparse

import "github.com/dfedorov/codequery/internal/core/domain"

// Encoder binds a builder to the process-wide vocabulary and the sparse
// vector name the collection was created with.
type Encoder struct {
	builder    *Builder
	vocabulary domain.Vocabulary
	vectorName string
}

func NewEncoder(builder *Builder, vocabulary domain.Vocabulary, vectorName string) *Encoder {
	if builder == nil {
		builder = NewBuilder(nil)
	}
	return &Encoder{builder: builder, vocabulary: vocabulary, vectorName: vectorName}
}

// Encode returns nil when no vocabulary term matches, signalling callers to
// fall back to dense-only search.
func (e *Encoder) Encode(query string) *domain.SparseVector {
	return e.builder.Build(query, e.vocabulary, e.vectorName)
}
