package datasource

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig contains configuration for the MongoDB adapter backend.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database holding the governed collections.
	Database string

	// ConnectTimeout bounds the initial connect and ping.
	// Default: 10 seconds
	ConnectTimeout time.Duration
}

// Mongo adapts a MongoDB database to the Adapter contract. Filters are
// pushed down to the server as equality clauses; patches become $set
// updates.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg *MongoConfig) (*Mongo, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, NewUnavailableError("mongo", "connect", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, NewUnavailableError("mongo", "ping", err)
	}

	logger := slog.Default().With("component", "datasource.mongo")
	logger.Info("mongo datasource connected", "database", cfg.Database)

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Insert appends documents to a collection. Implements Seeder.
func (m *Mongo) Insert(ctx context.Context, collection string, docs ...Document) error {
	payload := make([]any, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, bson.M(doc))
	}
	if _, err := m.db.Collection(collection).InsertMany(ctx, payload); err != nil {
		return NewUnavailableError("mongo", "insert", err)
	}
	return nil
}

// Query returns the documents matching filter.
func (m *Mongo) Query(ctx context.Context, collection string, filter Filter, projection []string) ([]Document, error) {
	opts := options.Find()
	if len(projection) > 0 {
		proj := bson.M{}
		for _, f := range projection {
			proj[f] = 1
		}
		opts.SetProjection(proj)
	}

	cursor, err := m.db.Collection(collection).Find(ctx, toBSON(filter), opts)
	if err != nil {
		return nil, NewUnavailableError("mongo", "query", err)
	}
	defer cursor.Close(ctx)

	var out []Document
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, NewUnavailableError("mongo", "query", err)
		}
		out = append(out, Document(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, NewUnavailableError("mongo", "query", err)
	}
	return out, nil
}

// Count returns the number of documents matching filter.
func (m *Mongo) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	n, err := m.db.Collection(collection).CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, NewUnavailableError("mongo", "count", err)
	}
	return n, nil
}

// Update applies patch as a $set to every document matching filter.
func (m *Mongo) Update(ctx context.Context, collection string, filter Filter, patch map[string]any) (*UpdateResult, error) {
	res, err := m.db.Collection(collection).UpdateMany(ctx, toBSON(filter), bson.M{"$set": bson.M(patch)})
	if err != nil {
		return nil, NewUnavailableError("mongo", "update", err)
	}
	return &UpdateResult{MatchedCount: res.MatchedCount}, nil
}

// Close disconnects from MongoDB.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func toBSON(filter Filter) bson.M {
	if len(filter) == 0 {
		return bson.M{}
	}
	return bson.M(filter)
}
