package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// rerankCandidates rescores the head of a ranked result list with a cheap
// lexical pass: normalized retrieval score blended with query/content token
// overlap and a file-path hit. The tail past topN keeps its original order.
func rerankCandidates(query string, points []domain.ScoredPoint, topN int) []domain.ScoredPoint {
	if len(points) == 0 {
		return points
	}
	if topN <= 0 || topN > len(points) {
		topN = len(points)
	}

	head := make([]domain.ScoredPoint, topN)
	copy(head, points[:topN])
	queryTokens := toTokenSet(query)

	minScore := head[0].Score
	maxScore := head[0].Score
	for _, p := range head[1:] {
		if p.Score < minScore {
			minScore = p.Score
		}
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}

	rangeScore := maxScore - minScore
	normalize := func(v float64) float64 {
		if rangeScore <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / rangeScore
	}

	for i := range head {
		normalized := normalize(head[i].Score)
		overlap := tokenOverlap(queryTokens, toTokenSet(payloadContent(head[i].Payload)))
		pathBoost := pathTokenHit(queryTokens, payloadFilePath(head[i].Payload))
		head[i].Score = 0.60*normalized + 0.30*overlap + 0.10*pathBoost
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].Score != head[j].Score {
			return head[i].Score > head[j].Score
		}
		return head[i].ID < head[j].ID
	})

	if topN == len(points) {
		return head
	}

	out := make([]domain.ScoredPoint, 0, len(points))
	out = append(out, head...)
	out = append(out, points[topN:]...)
	return out
}

func tokenOverlap(query, content map[string]struct{}) float64 {
	if len(query) == 0 || len(content) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := content[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func pathTokenHit(query map[string]struct{}, path string) float64 {
	if len(query) == 0 || path == "" || path == domain.UnknownFilePath {
		return 0
	}
	path = strings.ToLower(path)
	for token := range query {
		if token == "" {
			continue
		}
		if strings.Contains(path, token) {
			return 1
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
