// Package vectordb provides the vector-index client used for retrieval.
package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/parrotlabs/thinktank/internal/config"
	"go.uber.org/zap"
)

// Match is one nearest-neighbour hit. Document text lives in the
// "content" metadata field.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index is the query-side surface the RAG assistant depends on.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

type pineconeIndex struct {
	logger *zap.Logger
	cfg    config.PineconeConfig
	http   *http.Client

	mu   sync.Mutex
	host string
}

// NewPinecone builds a Pinecone data-plane client. The index host is
// resolved from the control plane on first use and cached.
func NewPinecone(logger *zap.Logger, cfg config.PineconeConfig) (Index, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.IndexName) == "" {
		return nil, fmt.Errorf("missing Pinecone index name")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &pineconeIndex{
		logger: logger,
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type indexDescription struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

func (c *pineconeIndex) resolveHost(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host != "" {
		return c.host, nil
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/indexes/" + c.cfg.IndexName
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinecone describe_index http %d: %s", resp.StatusCode, string(raw))
	}

	var desc indexDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return "", fmt.Errorf("pinecone describe_index decode: %w", err)
	}
	if strings.TrimSpace(desc.Host) == "" {
		return "", fmt.Errorf("pinecone describe_index returned empty host")
	}
	c.host = desc.Host
	return c.host, nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Namespace       string    `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

func (c *pineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		topK = 3
	}

	host, err := c.resolveHost(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinecone resolve host: %w", err)
	}

	body, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       c.cfg.Namespace,
	})
	if err != nil {
		return nil, err
	}

	u := host
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	u += "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone query http %d: %s", resp.StatusCode, string(raw))
	}

	var out queryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone query decode: %w", err)
	}
	return out.Matches, nil
}

func (c *pineconeIndex) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)
}
