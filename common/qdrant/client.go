// Package qdrant is a minimal REST client for the Qdrant points API.
// Only the scroll read path is implemented; collection management and
// vector upserts belong to the ingestion pipeline, which lives elsewhere.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	Host             string
	Port             int
	APIKey           string
	CollectionPrefix string
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("qdrant host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("qdrant port must be positive")
	}
	return nil
}

type Client interface {
	// ScrollPayloads pages through every point in the prefixed collection whose
	// payload carries the given system_id and returns the raw payloads.
	ScrollPayloads(ctx context.Context, collection string, systemID string) ([]json.RawMessage, error)

	// Ping reports whether the Qdrant instance answers on its health endpoint.
	Ping(ctx context.Context) error
}

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	prefix     string
}

const scrollPageSize = 256

func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("qdrant config: %w", err)
	}

	return &client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		apiKey:     cfg.APIKey,
		prefix:     cfg.CollectionPrefix,
	}, nil
}

type scrollRequest struct {
	Filter      scrollFilter `json:"filter"`
	Limit       int          `json:"limit"`
	Offset      any          `json:"offset,omitempty"`
	WithPayload bool         `json:"with_payload"`
	WithVector  bool         `json:"with_vector"`
}

type scrollFilter struct {
	Must []fieldCondition `json:"must"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      any             `json:"id"`
			Payload json.RawMessage `json:"payload"`
		} `json:"points"`
		NextPageOffset any `json:"next_page_offset"`
	} `json:"result"`
	Status string `json:"status"`
}

func (c *client) ScrollPayloads(ctx context.Context, collection string, systemID string) ([]json.RawMessage, error) {
	start := time.Now()
	name := c.prefix + collection

	var payloads []json.RawMessage
	var offset any

	for {
		reqBody := scrollRequest{
			Filter: scrollFilter{
				Must: []fieldCondition{
					{Key: "system_id", Match: matchValue{Value: systemID}},
				},
			},
			Limit:       scrollPageSize,
			Offset:      offset,
			WithPayload: true,
			WithVector:  false,
		}

		var page scrollResponse
		if err := c.post(ctx, fmt.Sprintf("/collections/%s/points/scroll", name), reqBody, &page); err != nil {
			return nil, fmt.Errorf("scroll %s: %w", name, err)
		}

		for _, point := range page.Result.Points {
			if len(point.Payload) == 0 {
				continue
			}
			payloads = append(payloads, point.Payload)
		}

		if page.Result.NextPageOffset == nil {
			break
		}
		offset = page.Result.NextPageOffset
	}

	slog.DebugContext(ctx, "qdrant payloads scrolled",
		"collection", name,
		"count", len(payloads),
		"duration_ms", time.Since(start).Milliseconds())

	return payloads, nil
}

func (c *client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant health check: status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
