package sparse

import (
	"sort"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// Builder maps processed query tokens onto the fixed vocabulary index
// space, producing term-frequency sparse vectors for hybrid search.
type Builder struct {
	processor *TokenProcessor
}

func NewBuilder(processor *TokenProcessor) *Builder {
	if processor == nil {
		processor = NewTokenProcessor(DefaultProcessorOptions())
	}
	return &Builder{processor: processor}
}

// Build returns nil when no query term survives processing or none is
// present in the vocabulary; callers fall back to dense-only search. Terms
// missing from the vocabulary are dropped silently — the vocabulary is a
// fixed snapshot from ingestion time and gaps are expected.
func (b *Builder) Build(query string, vocab domain.Vocabulary, vectorName string) *domain.SparseVector {
	if len(vocab) == 0 {
		return nil
	}

	terms := b.processor.Process(query)
	if len(terms) == 0 {
		return nil
	}

	freq := make(map[uint32]float32, len(terms))
	for _, term := range terms {
		idx, ok := vocab.Lookup(term)
		if !ok {
			continue
		}
		freq[idx]++
	}
	if len(freq) == 0 {
		return nil
	}

	indices := make([]uint32, 0, len(freq))
	for idx := range freq {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		values = append(values, freq[idx])
	}

	return &domain.SparseVector{
		Name:    vectorName,
		Indices: indices,
		Values:  values,
	}
}
