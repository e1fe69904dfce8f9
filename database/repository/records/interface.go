package recordsRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"rentathing/config"
	"rentathing/database"
	"rentathing/models"
)

const collectionName = "negotiation_records"

// NegotiationRecordRepository is the action ledger.
type NegotiationRecordRepository interface {
	Record(ctx context.Context, rec *models.NegotiationRecord) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.NegotiationRecord, error)
	HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error)
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns the ledger backed by the global Mongo client.
func NewMongoRecordRepo() (NegotiationRecordRepository, error) {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	r := newRecordRepo(db.Collection(collectionName))
	if err := r.ensureIndexes(); err != nil {
		return nil, err
	}
	return r, nil
}

func newRecordRepo(coll *mongo.Collection) *mongoRecordRepo {
	return &mongoRecordRepo{coll: coll}
}
