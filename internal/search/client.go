// Package search adapts the external hybrid vector+keyword index. Query
// failures degrade to empty results so a flaky index never blocks chat.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ragbot/internal/config"
	"ragbot/internal/models"
	"ragbot/internal/retry"
)

const apiVersion = "2023-11-01"

// Client talks to an Azure-AI-Search-shaped REST API: api-key header,
// per-index document search, PUT index management.
type Client struct {
	endpoint string
	apiKey   string
	index    string
	httpc    *http.Client
	retry    retry.Config
	// defaultScore is assigned to every remote hit. The engine's own
	// scores are not comparable to local cosine similarity, so a fixed
	// value keeps fusion arithmetic meaningful.
	defaultScore float64
}

func New(cfg config.SearchConfig, rcfg retry.Config) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	score := cfg.DefaultScore
	if score <= 0 {
		score = 0.5
	}
	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		index:        cfg.Index,
		httpc:        &http.Client{Timeout: timeout},
		retry:        rcfg,
		defaultScore: score,
	}
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	Search        string        `json:"search"`
	Top           int           `json:"top"`
	Select        string        `json:"select"`
	VectorQueries []vectorQuery `json:"vectorQueries,omitempty"`
}

type searchResponse struct {
	Value []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"value"`
}

// Search runs a hybrid text+vector query and returns up to k passages,
// each tagged with the fixed default score. On any upstream failure it
// logs and returns nil rather than propagating.
func (c *Client) Search(ctx context.Context, query string, vector []float32, k int) []models.Passage {
	req := searchRequest{Search: query, Top: k, Select: "title,url,content"}
	if len(vector) > 0 {
		req.VectorQueries = []vectorQuery{{Kind: "vector", Vector: vector, Fields: "contentVector", K: k}}
	}

	var resp searchResponse
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.post(ctx, fmt.Sprintf("/indexes/%s/docs/search", c.index), req, &resp)
	})
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("remote search failed, returning no results")
		return nil
	}

	passages := make([]models.Passage, 0, len(resp.Value))
	for _, doc := range resp.Value {
		passages = append(passages, models.Passage{
			Title:   doc.Title,
			Source:  doc.URL,
			Content: doc.Content,
			Origin:  models.OriginRemote,
			Score:   c.defaultScore,
		})
	}
	return passages
}

// Ping issues a minimal query, used by the warm-up check.
func (c *Client) Ping(ctx context.Context) error {
	var resp searchResponse
	return c.post(ctx, fmt.Sprintf("/indexes/%s/docs/search", c.index), searchRequest{Search: "*", Top: 1, Select: "title"}, &resp)
}

type indexField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	Profile    string `json:"vectorSearchProfile,omitempty"`
}

type indexSchema struct {
	Name         string       `json:"name"`
	Fields       []indexField `json:"fields"`
	VectorSearch struct {
		Algorithms []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"algorithms"`
		Profiles []struct {
			Name      string `json:"name"`
			Algorithm string `json:"algorithm"`
		} `json:"profiles"`
	} `json:"vectorSearch"`
}

// EnsureIndex creates the index schema if it does not exist. The vector
// field dimensionality must match the embedding model's output size.
func (c *Client) EnsureIndex(ctx context.Context, dims int) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		exists, err := c.indexExists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return c.createIndex(ctx, dims)
	})
}

func (c *Client) indexExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/indexes/%s?api-version=%s", c.endpoint, c.index, apiVersion), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("index lookup: status %d", resp.StatusCode)
	}
}

func (c *Client) createIndex(ctx context.Context, dims int) error {
	schema := indexSchema{
		Name: c.index,
		Fields: []indexField{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "title", Type: "Edm.String", Searchable: true},
			{Name: "url", Type: "Edm.String"},
			{Name: "content", Type: "Edm.String", Searchable: true},
			{Name: "contentVector", Type: "Collection(Edm.Single)", Searchable: true, Dimensions: dims, Profile: "vector-profile"},
		},
	}
	schema.VectorSearch.Algorithms = []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}{{Name: "hnsw-algo", Kind: "hnsw"}}
	schema.VectorSearch.Profiles = []struct {
		Name      string `json:"name"`
		Algorithm string `json:"algorithm"`
	}{{Name: "vector-profile", Algorithm: "hnsw-algo"}}

	body, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/indexes/%s?api-version=%s", c.endpoint, c.index, apiVersion), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index create: status %d, %s", resp.StatusCode, string(b))
	}
	io.Copy(io.Discard, resp.Body)
	log.Info().Str("index", c.index).Int("dims", dims).Msg("search index created")
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s%s?api-version=%s", c.endpoint, path, apiVersion), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed: %d, %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
