package arangodb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

var ErrNotFound = errors.New("document not found")

type Client interface {
	// Setup operations
	EnsureDatabase(ctx context.Context) error
	EnsureCollections(ctx context.Context) error
	EnsureGraph(ctx context.Context) error

	// Write operations (for seeding from local catalog files)
	SeedEntities(ctx context.Context, entities []EntityDoc) error
	SeedBindings(ctx context.Context, bindings []BindingDoc) error
	SeedRelations(ctx context.Context, relations []RelationDoc) error
	TruncateCollections(ctx context.Context) error

	// Read operations (for the catalog loader)
	FetchBindings(ctx context.Context, systemID string) ([]BindingDoc, error)
	FetchEntities(ctx context.Context, systemID string) ([]EntityDoc, error)
	RelatedConcepts(ctx context.Context, systemID string, concept string, depth int) ([]EntityDoc, error)

	// Utility
	Close() error
}

type Config struct {
	URL              string
	Username         string
	Password         string
	Database         string
	CollectionPrefix string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL}) // round robins from the urls. we just have one for now
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	arangoClient := arangodb.NewClient(conn)

	c := &client{
		conn:         conn,
		arangoClient: arangoClient,
		cfg:          cfg,
	}

	return c, nil
}

func (c *client) Close() error {
	return nil
}

func (c *client) entitiesCollection() string {
	return c.cfg.CollectionPrefix + "entities"
}

func (c *client) bindingsCollection() string {
	return c.cfg.CollectionPrefix + "bindings"
}

func (c *client) relationsCollection() string {
	return c.cfg.CollectionPrefix + "relationships"
}

func (c *client) graphName() string {
	return c.cfg.CollectionPrefix + "catalog"
}

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		_, err = c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil)
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

func (c *client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	documentCollections := []string{c.entitiesCollection(), c.bindingsCollection()}
	edgeCollections := []string{c.relationsCollection()}

	for _, name := range documentCollections {
		if err := c.ensureCollection(ctx, name, false); err != nil {
			return err
		}
	}

	for _, name := range edgeCollections {
		if err := c.ensureCollection(ctx, name, true); err != nil {
			return err
		}
	}

	return nil
}

func (c *client) ensureCollection(ctx context.Context, name string, isEdge bool) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}

	if !exists {
		props := &arangodb.CreateCollectionPropertiesV2{}
		if isEdge {
			colType := arangodb.CollectionTypeEdge
			props.Type = &colType
		} else {
			colType := arangodb.CollectionTypeDocument
			props.Type = &colType
		}

		_, err = c.db.CreateCollectionV2(ctx, name, props)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.InfoContext(ctx, "arangodb collection created",
			"collection", name,
			"is_edge", isEdge)
	}

	return nil
}

func (c *client) EnsureGraph(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	graphName := c.graphName()
	exists, err := c.db.GraphExists(ctx, graphName)
	if err != nil {
		return fmt.Errorf("check graph exists: %w", err)
	}

	if exists {
		return nil
	}

	graphDef := &arangodb.GraphDefinition{
		Name: graphName,
		EdgeDefinitions: []arangodb.EdgeDefinition{
			{
				Collection: c.relationsCollection(),
				From:       []string{c.entitiesCollection()},
				To:         []string{c.entitiesCollection()},
			},
		},
	}

	_, err = c.db.CreateGraph(ctx, graphName, graphDef, nil)
	if err != nil {
		return fmt.Errorf("create graph: %w", err)
	}

	slog.InfoContext(ctx, "arangodb graph created", "graph", graphName)
	return nil
}

func (c *client) TruncateCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	start := time.Now()

	allCollections := []string{c.entitiesCollection(), c.bindingsCollection(), c.relationsCollection()}

	for _, name := range allCollections {
		col, err := c.db.GetCollection(ctx, name, nil)
		if err != nil {
			return fmt.Errorf("get collection %s: %w", name, err)
		}

		if err := col.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate collection %s: %w", name, err)
		}
	}

	slog.InfoContext(ctx, "arangodb collections truncated",
		"collections", len(allCollections),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// SeedEntities inserts concept documents into the entities collection.
// Duplicates (same _key) are silently ignored - existing documents are NOT updated.
// Use TruncateCollections first when a clean re-seed is wanted.
func (c *client) SeedEntities(ctx context.Context, entities []EntityDoc) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if len(entities) == 0 {
		return nil
	}

	start := time.Now()
	col, err := c.db.GetCollection(ctx, c.entitiesCollection(), nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", c.entitiesCollection(), err)
	}

	docs := make([]map[string]any, len(entities))
	for i, entity := range entities {
		doc := map[string]any{
			"_key":      entityKey(entity.SystemID, entity.Name),
			"system_id": entity.SystemID,
			"name":      entity.Name,
			"kind":      entity.Kind,
		}
		if entity.DataType != "" {
			doc["data_type"] = entity.DataType
		}
		if len(entity.Labels) > 0 {
			doc["labels"] = entity.Labels
		}
		if len(entity.Synonyms) > 0 {
			doc["synonyms"] = entity.Synonyms
		}
		docs[i] = doc
	}

	reader, err := col.CreateDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("create documents: %w", err)
	}

	// Consume all responses (ignoring errors for duplicate keys)
	for {
		_, readErr := reader.Read()
		if readErr != nil {
			break
		}
	}

	slog.DebugContext(ctx, "arangodb entities seeded",
		"collection", c.entitiesCollection(),
		"count", len(entities),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// SeedBindings inserts binding documents into the bindings collection.
// Duplicates (same _key) are silently ignored - existing documents are NOT updated.
func (c *client) SeedBindings(ctx context.Context, bindings []BindingDoc) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if len(bindings) == 0 {
		return nil
	}

	start := time.Now()
	col, err := c.db.GetCollection(ctx, c.bindingsCollection(), nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", c.bindingsCollection(), err)
	}

	docs := make([]map[string]any, len(bindings))
	for i, binding := range bindings {
		doc := map[string]any{
			"_key":      bindingKey(binding.SystemID, binding.Concept, binding.Dialect),
			"system_id": binding.SystemID,
			"concept":   binding.Concept,
			"dialect":   binding.Dialect,
			"table":     binding.Table,
			"column":    binding.Column,
		}
		if binding.Aggregation != "" {
			doc["aggregation"] = binding.Aggregation
		}
		if binding.Operator != "" {
			doc["operator"] = binding.Operator
		}
		if binding.S3Path != "" {
			doc["s3_path"] = binding.S3Path
		}
		docs[i] = doc
	}

	reader, err := col.CreateDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("create documents: %w", err)
	}

	// Consume all responses (ignoring errors for duplicate keys)
	for {
		_, readErr := reader.Read()
		if readErr != nil {
			break
		}
	}

	slog.DebugContext(ctx, "arangodb bindings seeded",
		"collection", c.bindingsCollection(),
		"count", len(bindings),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// SeedRelations inserts edges between entity documents. From and To name
// concepts; the edge endpoints are derived the same way SeedEntities keys them.
func (c *client) SeedRelations(ctx context.Context, relations []RelationDoc) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if len(relations) == 0 {
		return nil
	}

	start := time.Now()
	col, err := c.db.GetCollection(ctx, c.relationsCollection(), nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", c.relationsCollection(), err)
	}

	docs := make([]map[string]any, len(relations))
	for i, rel := range relations {
		docs[i] = map[string]any{
			"_key":      relationKey(rel.SystemID, rel.From, rel.To, rel.Type),
			"_from":     fmt.Sprintf("%s/%s", c.entitiesCollection(), entityKey(rel.SystemID, rel.From)),
			"_to":       fmt.Sprintf("%s/%s", c.entitiesCollection(), entityKey(rel.SystemID, rel.To)),
			"system_id": rel.SystemID,
			"type":      rel.Type,
		}

		for k, v := range rel.Properties {
			docs[i][k] = v
		}
	}

	reader, err := col.CreateDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("create edge documents: %w", err)
	}

	// Consume all responses (ignoring errors for duplicate keys)
	for {
		_, readErr := reader.Read()
		if readErr != nil {
			break
		}
	}

	slog.DebugContext(ctx, "arangodb relations seeded",
		"collection", c.relationsCollection(),
		"count", len(relations),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

func (c *client) FetchBindings(ctx context.Context, systemID string) ([]BindingDoc, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	start := time.Now()

	query := `
		FOR d IN @@collection
			FILTER d.system_id == @system_id
			RETURN d
	`
	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"@collection": c.bindingsCollection(),
			"system_id":   systemID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var results []BindingDoc
	for cursor.HasMore() {
		var doc BindingDoc
		_, err := cursor.ReadDocument(ctx, &doc)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		results = append(results, doc)
	}

	slog.DebugContext(ctx, "arangodb bindings fetched",
		"system_id", systemID,
		"count", len(results),
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}

func (c *client) FetchEntities(ctx context.Context, systemID string) ([]EntityDoc, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	start := time.Now()

	query := `
		FOR d IN @@collection
			FILTER d.system_id == @system_id
			RETURN d
	`
	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"@collection": c.entitiesCollection(),
			"system_id":   systemID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var results []EntityDoc
	for cursor.HasMore() {
		var doc EntityDoc
		_, err := cursor.ReadDocument(ctx, &doc)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		results = append(results, doc)
	}

	slog.DebugContext(ctx, "arangodb entities fetched",
		"system_id", systemID,
		"count", len(results),
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}

// RelatedConcepts walks the relationships graph outward from a concept and
// returns the entity documents reachable within depth hops.
func (c *client) RelatedConcepts(ctx context.Context, systemID string, concept string, depth int) ([]EntityDoc, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if depth <= 0 {
		depth = 1
	}

	start := time.Now()

	startVertex := fmt.Sprintf("%s/%s", c.entitiesCollection(), entityKey(systemID, concept))

	query := `
		FOR v IN 1..@depth ANY @start @@edges
			OPTIONS {uniqueVertices: "global", order: "bfs"}
			FILTER v.system_id == @system_id
			RETURN DISTINCT v
	`
	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"@edges":    c.relationsCollection(),
			"start":     startVertex,
			"depth":     depth,
			"system_id": systemID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var results []EntityDoc
	for cursor.HasMore() {
		var doc EntityDoc
		_, err := cursor.ReadDocument(ctx, &doc)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		// Skip vertices that weren't found (dangling edge endpoints)
		if doc.Name == "" {
			continue
		}
		results = append(results, doc)
	}

	slog.DebugContext(ctx, "arangodb traversal completed",
		"concept", concept,
		"depth", depth,
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}

func entityKey(systemID, name string) string {
	return makeKey(systemID + "/" + name)
}

func bindingKey(systemID, concept, dialect string) string {
	return makeKey(systemID + "/" + concept + "/" + dialect)
}

func relationKey(systemID, from, to, relType string) string {
	return makeKey(systemID + "/" + from + ">" + to + "/" + relType)
}

// makeKey derives a stable ArangoDB _key from an arbitrary identifier.
// Identifiers can contain characters ArangoDB rejects in keys, so hash them.
func makeKey(id string) string {
	hash := md5.Sum([]byte(id))
	return hex.EncodeToString(hash[:])[:16]
}
