// Package graph talks to an optional external knowledge-graph engine that
// contributes extra context tuples to query answering. The engine is a
// separate deployment; everything here is best effort.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fixwise/fixwise/internal/service"
)

const defaultTimeout = 10 * time.Second

// Client queries the knowledge-graph engine over HTTP/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type queryRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit"`
}

type queryResponse struct {
	Results []struct {
		Content   string            `json:"content"`
		Relevance float32           `json:"relevance"`
		Metadata  map[string]string `json:"metadata"`
	} `json:"results"`
}

// Query asks the graph engine for context tuples related to the question
func (c *Client) Query(ctx context.Context, question string) ([]*service.GraphItem, error) {
	payload, err := json.Marshal(queryRequest{Question: question, Limit: 5})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("graph engine returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode graph response: %w", err)
	}

	items := make([]*service.GraphItem, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		items = append(items, &service.GraphItem{
			Content:   result.Content,
			Relevance: result.Relevance,
			Metadata:  result.Metadata,
		})
	}
	return items, nil
}
