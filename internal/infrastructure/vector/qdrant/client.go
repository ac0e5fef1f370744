package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfedorov/codequery/internal/core/domain"
)

const (
	// SparseVectorName is the named sparse vector slot used by hybrid
	// collections; the sparse builder must emit vectors under this name.
	SparseVectorName = "bm25"

	upsertBatchSize = 256
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	c := New(baseURL)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

// CreateCollection creates a collection with a dense vector schema and,
// when hybridEnabled, an additional named sparse vector slot.
func (c *Client) CreateCollection(ctx context.Context, name string, dimension int, metric string, hybridEnabled bool) error {
	if metric == "" {
		metric = "Cosine"
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": metric,
		},
	}
	if hybridEnabled {
		body["sparse_vectors"] = map[string]any{
			SparseVectorName: map[string]any{},
		}
	}
	return c.do(ctx, http.MethodPut, "/collections/"+name, body, nil, "create collection")
}

func (c *Client) DescribeCollection(ctx context.Context, name string) (map[string]any, error) {
	var response struct {
		Result map[string]any `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections/"+name, nil, &response, "describe collection"); err != nil {
		return nil, err
	}
	return response.Result, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var response struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &response, "list collections"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(response.Result.Collections))
	for _, col := range response.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil, "delete collection")
}

type upsertPoint struct {
	ID      any            `json:"id"`
	Vector  map[string]any `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upsert writes points in fixed-size batches, waiting for each batch's
// durability acknowledgment before issuing the next. Missing ids are
// generated; returned ids are in input order.
func (c *Client) Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []map[string]any, ids []string) ([]string, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	if len(payloads) != 0 && len(payloads) != len(vectors) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant upsert",
			fmt.Errorf("payloads/vectors mismatch: %d vs %d", len(payloads), len(vectors)))
	}
	if len(ids) != 0 && len(ids) != len(vectors) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant upsert",
			fmt.Errorf("ids/vectors mismatch: %d vs %d", len(ids), len(vectors)))
	}

	outIDs := make([]string, len(vectors))
	points := make([]upsertPoint, len(vectors))
	for i := range vectors {
		id := ""
		if len(ids) != 0 {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}
		outIDs[i] = id

		var payload map[string]any
		if len(payloads) != 0 {
			payload = payloads[i]
		}
		points[i] = upsertPoint{
			ID:      coercePointID(id),
			Vector:  map[string]any{"": vectors[i]},
			Payload: payload,
		}
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		body := map[string]any{"points": points[start:end]}
		path := "/collections/" + collection + "/points?wait=true"
		if err := c.do(ctx, http.MethodPut, path, body, nil, "upsert"); err != nil {
			return nil, err
		}
	}
	return outIDs, nil
}

// Query runs either a dense-only search or a dense+sparse query fused by
// reciprocal rank, depending on whether a non-empty sparse vector is
// supplied. Calling with neither vector is an error.
func (c *Client) Query(
	ctx context.Context,
	collection string,
	dense []float32,
	sparse *domain.SparseVector,
	topK int,
	filter domain.Filter,
	includeVector bool,
) ([]domain.ScoredPoint, error) {
	if len(dense) == 0 && sparse.IsEmpty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant query",
			fmt.Errorf("neither dense nor sparse vector supplied"))
	}
	if topK <= 0 {
		topK = 10
	}

	nativeFilter, err := TranslateFilter(filter)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"limit":        topK,
		"with_payload": true,
		"with_vector":  includeVector,
	}
	if nativeFilter != nil {
		body["filter"] = nativeFilter
	}

	switch {
	case len(dense) != 0 && !sparse.IsEmpty():
		prefetchLimit := topK * 4
		body["prefetch"] = []map[string]any{
			{"query": dense, "limit": prefetchLimit},
			{
				"query": map[string]any{"indices": sparse.Indices, "values": sparse.Values},
				"using": sparse.Name,
				"limit": prefetchLimit,
			},
		}
		body["query"] = map[string]any{"fusion": "rrf"}
	case len(dense) != 0:
		body["query"] = dense
	default:
		body["query"] = map[string]any{"indices": sparse.Indices, "values": sparse.Values}
		body["using"] = sparse.Name
	}

	var response struct {
		Result struct {
			Points []struct {
				ID      json.RawMessage `json:"id"`
				Score   float64         `json:"score"`
				Payload map[string]any  `json:"payload"`
				Vector  []float32       `json:"vector"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/query", body, &response, "query"); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredPoint, 0, len(response.Result.Points))
	for _, p := range response.Result.Points {
		out = append(out, domain.ScoredPoint{
			ID:      decodePointID(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
			Vector:  p.Vector,
		})
	}
	return out, nil
}

// UpdateByID replaces the payload stored on a point.
func (c *Client) UpdateByID(ctx context.Context, collection, id string, payload map[string]any) error {
	body := map[string]any{
		"payload": payload,
		"points":  []any{coercePointID(id)},
	}
	path := "/collections/" + collection + "/points/payload?wait=true"
	return c.do(ctx, http.MethodPost, path, body, nil, "update point")
}

func (c *Client) DeleteByID(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]any, 0, len(ids))
	for _, id := range ids {
		points = append(points, coercePointID(id))
	}
	body := map[string]any{"points": points}
	path := "/collections/" + collection + "/points/delete?wait=true"
	return c.do(ctx, http.MethodPost, path, body, nil, "delete points")
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, operation string) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "qdrant "+operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return qdrantStatusError(operation, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return nil
}

func qdrantStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))

	err := fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	if msg != "" {
		err = fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return domain.WrapError(domain.ErrTemporary, "qdrant "+operation, err)
	}
	return err
}

// coercePointID converts purely numeric string ids into numeric point
// identifiers. The rule is load-bearing: stores that distinguish numeric
// and string keys must round-trip identity through it.
func coercePointID(id string) any {
	if id == "" {
		return id
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || strconv.FormatUint(n, 10) != id {
		// Leading zeros would not survive the numeric round trip.
		return id
	}
	return n
}

func decodePointID(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return strings.Trim(string(raw), `"`)
}
