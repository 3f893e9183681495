package catalog

import (
	"context"

	"dataagentjp.io/querycore/common/arangodb"
	"dataagentjp.io/querycore/internal/domain"
)

// GraphSource reads bindings and concepts from the ArangoDB catalog
// graph. Bindings live there first; entity documents double as a
// concept source when Qdrant is down.
type GraphSource struct {
	client arangodb.Client
}

func NewGraphSource(client arangodb.Client) *GraphSource {
	return &GraphSource{client: client}
}

func (s *GraphSource) Name() string {
	return "arangodb"
}

func (s *GraphSource) Bindings(ctx context.Context, systemID string) ([]Binding, error) {
	docs, err := s.client.FetchBindings(ctx, systemID)
	if err != nil {
		return nil, err
	}

	bindings := make([]Binding, 0, len(docs))
	for _, doc := range docs {
		bindings = append(bindings, Binding{
			Concept:     doc.Concept,
			Dialect:     domain.Dialect(doc.Dialect),
			Table:       doc.Table,
			Column:      doc.Column,
			Aggregation: Aggregation(doc.Aggregation),
			Operator:    doc.Operator,
			S3Path:      doc.S3Path,
		})
	}
	return bindings, nil
}

func (s *GraphSource) Concepts(ctx context.Context, systemID string) ([]Concept, error) {
	docs, err := s.client.FetchEntities(ctx, systemID)
	if err != nil {
		return nil, err
	}

	concepts := make([]Concept, 0, len(docs))
	for _, doc := range docs {
		concepts = append(concepts, Concept{
			Name:     doc.Name,
			Kind:     Kind(doc.Kind),
			DataType: doc.DataType,
			Labels:   doc.Labels,
			Synonyms: doc.Synonyms,
		})
	}
	return concepts, nil
}
