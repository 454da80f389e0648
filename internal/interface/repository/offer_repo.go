package repository

import (
	"context"
	"time"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOfferRepository implements the OfferRepository interface
type MongoOfferRepository struct {
	collection *mongo.Collection
}

// NewMongoOfferRepository creates a new MongoDB offer repository
func NewMongoOfferRepository(db *mongo.Database) repository.OfferRepository {
	collection := db.Collection("airfare_stack")

	ctx := context.Background()

	// Unique index on hashKey. This is the only backstop against two
	// concurrent requests inserting the same offer after both passed the
	// dedup check.
	hashKeyIndex := mongo.IndexModel{
		Keys:    bson.M{"hashKey": 1},
		Options: options.Index().SetUnique(true),
	}

	// Index on source for per-label queries
	sourceIndex := mongo.IndexModel{
		Keys: bson.M{"source": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		hashKeyIndex,
		sourceIndex,
	})

	return &MongoOfferRepository{
		collection: collection,
	}
}

// ExistingKeys returns which of the given hash keys are already stored,
// using a single $in query regardless of batch size. An empty input
// returns an empty set without querying.
func (r *MongoOfferRepository) ExistingKeys(ctx context.Context, hashKeys []string) (map[string]struct{}, error) {
	if len(hashKeys) == 0 {
		return make(map[string]struct{}), nil
	}

	filter := bson.M{"hashKey": bson.M{"$in": hashKeys}}
	projection := options.Find().SetProjection(bson.M{"hashKey": 1})

	cursor, err := r.collection.Find(ctx, filter, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	existing := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc struct {
			HashKey string `bson:"hashKey"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		existing[doc.HashKey] = struct{}{}
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return existing, nil
}

// Insert stores a new offer
func (r *MongoOfferRepository) Insert(ctx context.Context, offer *entity.Offer) error {
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, offer)
	return err
}
