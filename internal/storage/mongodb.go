// mongodb.go - Optional append-only analysis log in MongoDB

package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bosocmputer/waspada_api/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	analysesCollection = "analyses"
	writeTimeout       = 5 * time.Second
)

// ErrStorageDisabled is returned when no MONGO_URI is configured
var ErrStorageDisabled = errors.New("analysis storage is disabled")

// AnalysisRecord is one logged analysis. The screenshot and the user note are never stored.
type AnalysisRecord struct {
	RequestID        string            `bson:"request_id" json:"request_id"`
	Lang             string            `bson:"lang" json:"lang"`
	Provider         string            `bson:"provider" json:"provider"`
	Model            string            `bson:"model" json:"model"`
	Scenario         string            `bson:"scenario" json:"scenario"`
	Verdict          string            `bson:"verdict" json:"verdict"`
	Risk             string            `bson:"risk" json:"risk"`
	OutOfScope       bool              `bson:"out_of_scope" json:"out_of_scope"`
	ImageFingerprint string            `bson:"image_fingerprint" json:"image_fingerprint"`
	Cached           bool              `bson:"cached" json:"cached"`
	Tokens           common.TokenUsage `bson:"tokens" json:"tokens"`
	DurationSec      float64           `bson:"duration_sec" json:"duration_sec"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
}

// VerdictCount is one row of CountByVerdict
type VerdictCount struct {
	Verdict string `bson:"_id" json:"verdict"`
	Count   int64  `bson:"count" json:"count"`
}

// MongoStore writes analysis records to MongoDB
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	pending    sync.WaitGroup
}

// InitMongoDB connects and pings. An empty uri returns ErrStorageDisabled.
func InitMongoDB(uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		return nil, ErrStorageDisabled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(analysesCollection),
	}

	index := mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}
	if _, err := store.collection.Indexes().CreateOne(ctx, index); err != nil {
		log.Printf("⚠️  Failed to create created_at index: %v", err)
	}

	log.Println("✅ Connected to MongoDB successfully!")
	return store, nil
}

// Close waits for in-flight writes, then disconnects
func (s *MongoStore) Close(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Println("⚠️  Pending analysis writes abandoned on shutdown")
	}

	if err := s.client.Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect failed: %v", err)
		return
	}
	log.Println("MongoDB connection closed")
}

// InsertAnalysis writes one record synchronously
func (s *MongoStore) InsertAnalysis(ctx context.Context, record AnalysisRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// SaveAnalysis logs a record in the background. Failures are logged and dropped.
func (s *MongoStore) SaveAnalysis(record AnalysisRecord) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.InsertAnalysis(ctx, record); err != nil {
			log.Printf("[%s] ⚠️  %v", record.RequestID, err)
		}
	}()
}

// CountByVerdict counts analyses created at or after since, grouped by verdict
func (s *MongoStore) CountByVerdict(ctx context.Context, since time.Time) ([]VerdictCount, error) {
	cursor, err := s.collection.Aggregate(ctx, verdictPipeline(since))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate analyses: %w", err)
	}
	defer cursor.Close(ctx)

	results := []VerdictCount{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode verdict counts: %w", err)
	}
	return results, nil
}

func verdictPipeline(since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$verdict", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
}
