package arangodb

// BindingDoc is the wire shape of a binding document in the
// <prefix>bindings collection. Fields mirror the local bindings.json
// schema so both sources decode into the same catalog state.
type BindingDoc struct {
	Key         string `json:"_key,omitempty"`
	SystemID    string `json:"system_id"`
	Concept     string `json:"concept"`
	Dialect     string `json:"dialect"`
	Table       string `json:"table"`
	Column      string `json:"column"`
	Aggregation string `json:"aggregation,omitempty"`
	Operator    string `json:"operator,omitempty"`
	S3Path      string `json:"s3_path,omitempty"`
}

// EntityDoc is the wire shape of a concept document in the
// <prefix>entities collection.
type EntityDoc struct {
	Key      string            `json:"_key,omitempty"`
	SystemID string            `json:"system_id"`
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	DataType string            `json:"data_type,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Synonyms []string          `json:"synonyms,omitempty"`
}

// RelationDoc describes an edge between two concepts. From and To are
// concept names; SeedRelations resolves them to entity document IDs.
type RelationDoc struct {
	SystemID   string
	From       string
	To         string
	Type       string
	Properties map[string]any
}
