package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// Loader fetches the sparse-search vocabulary, a JSON object mapping
// stemmed terms to vector indices, from either a local file or an HTTP(S)
// blob. The mapping is loaded once at process start and shared read-only.
type Loader struct {
	location   string
	httpClient *http.Client
}

func New(location string) *Loader {
	return &Loader{
		location:   strings.TrimSpace(location),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func NewWithHTTPClient(location string, httpClient *http.Client) *Loader {
	return &Loader{location: strings.TrimSpace(location), httpClient: httpClient}
}

func (l *Loader) Load(ctx context.Context) (domain.Vocabulary, error) {
	if l.location == "" {
		return nil, fmt.Errorf("vocabulary location is empty")
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(l.location, "http://") || strings.HasPrefix(l.location, "https://") {
		raw, err = l.fetch(ctx)
	} else {
		raw, err = os.ReadFile(l.location)
	}
	if err != nil {
		return nil, fmt.Errorf("load vocabulary from %s: %w", l.location, err)
	}

	var vocabulary domain.Vocabulary
	if err := json.Unmarshal(raw, &vocabulary); err != nil {
		return nil, fmt.Errorf("parse vocabulary from %s: %w", l.location, err)
	}
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("vocabulary at %s is empty", l.location)
	}
	return vocabulary, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}
