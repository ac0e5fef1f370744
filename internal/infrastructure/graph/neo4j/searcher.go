package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// Searcher answers relationship and impact questions over the code graph.
// Entities (functions, types, files) are nodes indexed by a full-text
// index; CALLS/IMPORTS/IMPLEMENTS/DEPENDS_ON edges connect them.
type Searcher struct {
	driver   neo4j.DriverWithContext
	database string
	index    string
}

func New(uri, username, password, database string) (*Searcher, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Searcher{driver: driver, database: database, index: "code_entities"}, nil
}

func (s *Searcher) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Searcher) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity: %w", err)
	}
	return nil
}

const relatedSnippetsCypher = `
CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
OPTIONAL MATCH (node)-[rel:CALLS|IMPORTS|IMPLEMENTS|DEPENDS_ON]-(related)
WITH node, score, collect({relation: type(rel), name: related.name, file_path: related.file_path}) AS relations
RETURN node.file_path AS file_path,
       node.name AS name,
       node.snippet AS content,
       relations
ORDER BY score DESC
LIMIT $limit`

func (s *Searcher) RelatedSnippets(ctx context.Context, query string, limit int) ([]domain.ContextSnippet, error) {
	if limit <= 0 {
		limit = 5
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	result, err := neo4j.ExecuteQuery(ctx, s.driver, relatedSnippetsCypher,
		map[string]any{"index": s.index, "query": query, "limit": limit},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}

	snippets := make([]domain.ContextSnippet, 0, len(result.Records))
	for _, record := range result.Records {
		snippet, ok := snippetFromRecord(record.AsMap())
		if !ok {
			continue
		}
		snippets = append(snippets, snippet)
	}
	return snippets, nil
}

// snippetFromRecord renders one graph match into a context snippet: the
// entity's own code followed by its relationship lines, so the generator
// sees both the definition and how it is wired.
func snippetFromRecord(values map[string]any) (domain.ContextSnippet, bool) {
	content, _ := values["content"].(string)
	name, _ := values["name"].(string)
	if strings.TrimSpace(content) == "" && strings.TrimSpace(name) == "" {
		return domain.ContextSnippet{}, false
	}

	var b strings.Builder
	b.WriteString(content)

	if relations, ok := values["relations"].([]any); ok {
		for _, raw := range relations {
			rel, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			relation, _ := rel["relation"].(string)
			relatedName, _ := rel["name"].(string)
			if relation == "" || relatedName == "" {
				continue
			}
			relatedPath, _ := rel["file_path"].(string)
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			if relatedPath != "" {
				fmt.Fprintf(&b, "// %s %s %s (%s)", name, strings.ToLower(relation), relatedName, relatedPath)
			} else {
				fmt.Fprintf(&b, "// %s %s %s", name, strings.ToLower(relation), relatedName)
			}
		}
	}

	path, _ := values["file_path"].(string)
	if strings.TrimSpace(path) == "" {
		path = domain.UnknownFilePath
	}
	return domain.ContextSnippet{FilePath: path, Content: b.String()}, true
}
