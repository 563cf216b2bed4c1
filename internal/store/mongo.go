// Package store routes (platform, term) pairs to storage locations and owns
// the document-store and file-cache writers behind them.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/snapit/price-scraper/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryLimit = 100

// Store is the process-scoped document-store state: clients cached per
// connection target and an index-creation memo keyed by the full location
// triple, both created at process start and discarded at process exit.
type Store struct {
	mu      sync.Mutex
	clients map[string]*mongo.Client
	indexed map[string]bool
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Store {
	return &Store{
		clients: make(map[string]*mongo.Client),
		indexed: make(map[string]bool),
		logger:  logger.With("component", "store"),
	}
}

func (s *Store) client(ctx context.Context, uri string) (*mongo.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[uri]; ok {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", uri, err)
	}
	s.clients[uri] = client
	return client, nil
}

// Collection resolves a storage location to a live collection handle.
func (s *Store) Collection(ctx context.Context, loc models.StorageLocation) (*mongo.Collection, error) {
	client, err := s.client(ctx, loc.URI)
	if err != nil {
		return nil, err
	}
	return client.Database(loc.Database).Collection(loc.Collection), nil
}

// EnsureIndexes creates the product_name/search_term/location indexes for
// the location, at most once per process lifetime.
func (s *Store) EnsureIndexes(ctx context.Context, loc models.StorageLocation) error {
	s.mu.Lock()
	done := s.indexed[loc.Key()]
	s.mu.Unlock()
	if done {
		return nil
	}

	col, err := s.Collection(ctx, loc)
	if err != nil {
		return err
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "product_name", Value: 1}}},
		{Keys: bson.D{{Key: "search_term", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", loc.Collection, err)
	}

	s.mu.Lock()
	s.indexed[loc.Key()] = true
	s.mu.Unlock()
	return nil
}

// Write inserts the records as new documents. Repeated runs accumulate
// duplicates; there is deliberately no upsert or dedup here.
func (s *Store) Write(ctx context.Context, loc models.StorageLocation, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.EnsureIndexes(ctx, loc); err != nil {
		return 0, err
	}

	col, err := s.Collection(ctx, loc)
	if err != nil {
		return 0, err
	}

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	result, err := col.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert records into %s: %w", loc.Collection, err)
	}
	return len(result.InsertedIDs), nil
}

// Find reads documents from the location, newest first, capped at the query
// limit, with the identifier normalized to its string form.
func (s *Store) Find(ctx context.Context, loc models.StorageLocation, filter bson.M) ([]map[string]interface{}, error) {
	col, err := s.Collection(ctx, loc)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(queryLimit)

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", loc.Collection, err)
	}
	defer cursor.Close(ctx)

	var items []map[string]interface{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode documents from %s: %w", loc.Collection, err)
	}
	for _, item := range items {
		NormalizeID(item)
	}
	return items, nil
}

// TermFilter matches search_term by case-insensitive substring.
func TermFilter(term string) bson.M {
	return bson.M{"search_term": primitive.Regex{Pattern: term, Options: "i"}}
}

// NormalizeID converts a non-string identifier to its string form in place.
func NormalizeID(doc map[string]interface{}) {
	id, ok := doc["_id"]
	if !ok {
		return
	}
	switch v := id.(type) {
	case string:
	case primitive.ObjectID:
		doc["_id"] = v.Hex()
	default:
		doc["_id"] = fmt.Sprintf("%v", v)
	}
}

// Close disconnects every cached client.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for uri, client := range s.clients {
		if err := client.Disconnect(ctx); err != nil {
			s.logger.Warn("failed to disconnect client", "uri", uri, "error", err)
		}
	}
	s.clients = make(map[string]*mongo.Client)
}
