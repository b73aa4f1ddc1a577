package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"productapi/internal/models"

	"github.com/go-resty/resty/v2"
)

// refreshWaitFor makes writes return once they are visible to search.
const refreshWaitFor = "wait_for"

// ElasticsearchConfig holds connection details for the Elasticsearch index.
type ElasticsearchConfig struct {
	URL     string
	Index   string
	Timeout time.Duration
}

// ElasticsearchIndex is a ProductIndex backed by the Elasticsearch REST API.
type ElasticsearchIndex struct {
	client *resty.Client
	index  string
}

// esSearchResponse is the part of a _search response we read.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewElasticsearchIndex creates a client for the configured index.
func NewElasticsearchIndex(cfg ElasticsearchConfig) *ElasticsearchIndex {
	if cfg.Index == "" {
		cfg.Index = "products"
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &ElasticsearchIndex{client: client, index: cfg.Index}
}

// Index writes the product document under its ID.
func (e *ElasticsearchIndex) Index(ctx context.Context, product *models.Product) error {
	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"index": e.index, "id": product.ID}).
		SetQueryParam("refresh", refreshWaitFor).
		SetBody(product).
		Put("/{index}/_doc/{id}")
	if err != nil {
		return fmt.Errorf("failed to index product %s: %w", product.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to index product %s: status %d: %s", product.ID, resp.StatusCode(), resp.String())
	}
	return nil
}

// Delete removes the product document.
func (e *ElasticsearchIndex) Delete(ctx context.Context, id string) error {
	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"index": e.index, "id": id}).
		SetQueryParam("refresh", refreshWaitFor).
		Delete("/{index}/_doc/{id}")
	if err != nil {
		return fmt.Errorf("failed to delete product %s from index: %w", id, err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("failed to delete product %s from index: status %d: %s", id, resp.StatusCode(), resp.String())
	}
	return nil
}

// MultiMatch runs a multi_match query and decodes the hits in score order.
func (e *ElasticsearchIndex) MultiMatch(ctx context.Context, text string, fields []string, size int) (*Result, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	var body esSearchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"index": e.index}).
		SetBody(buildMultiMatchQuery(text, fields, size)).
		SetResult(&body).
		Post("/{index}/_search")
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to search products: status %d: %s", resp.StatusCode(), resp.String())
	}

	res := &Result{
		Products: make([]*models.Product, 0, len(body.Hits.Hits)),
		Total:    body.Hits.Total.Value,
	}
	for _, hit := range body.Hits.Hits {
		var p models.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %w", hit.ID, err)
		}
		if p.ID == "" {
			p.ID = hit.ID
		}
		res.Products = append(res.Products, &p)
	}
	return res, nil
}

func buildMultiMatchQuery(text string, fields []string, size int) map[string]any {
	return map[string]any{
		"from": 0,
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": fields,
			},
		},
	}
}
