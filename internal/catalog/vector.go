package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"dataagentjp.io/querycore/common/qdrant"
)

// VectorSource reads concepts and intents from the Qdrant collections
// the ingestion pipeline maintains. Point payloads carry the same JSON
// shapes as the local metadata files.
type VectorSource struct {
	client qdrant.Client
}

func NewVectorSource(client qdrant.Client) *VectorSource {
	return &VectorSource{client: client}
}

func (s *VectorSource) Name() string {
	return "qdrant"
}

func (s *VectorSource) Concepts(ctx context.Context, systemID string) ([]Concept, error) {
	payloads, err := s.client.ScrollPayloads(ctx, "concepts", systemID)
	if err != nil {
		return nil, err
	}

	concepts := make([]Concept, 0, len(payloads))
	for _, payload := range payloads {
		var c Concept
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode concept payload: %w", err)
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}

func (s *VectorSource) Intents(ctx context.Context, systemID string) ([]Intent, error) {
	payloads, err := s.client.ScrollPayloads(ctx, "intents", systemID)
	if err != nil {
		return nil, err
	}

	intents := make([]Intent, 0, len(payloads))
	for _, payload := range payloads {
		var i Intent
		if err := json.Unmarshal(payload, &i); err != nil {
			return nil, fmt.Errorf("decode intent payload: %w", err)
		}
		intents = append(intents, i)
	}
	return intents, nil
}
