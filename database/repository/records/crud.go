package recordsRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentathing/models"
)

const defaultListLimit = 100

// Record inserts a ledger entry, filling in id and timestamp when missing.
func (r *mongoRecordRepo) Record(ctx context.Context, rec *models.NegotiationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert negotiation record: %w", err)
	}
	return nil
}

// ListByConversation returns the newest entries of a conversation first.
func (r *mongoRecordRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.NegotiationRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.NegotiationRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// HasReviewed reports whether reviewerID already submitted a review for bookingID.
func (r *mongoRecordRepo) HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error) {
	filter := bson.M{
		"bookingId": bookingID,
		"actorId":   reviewerID,
		"action":    models.ActionReview,
		"outcome":   models.OutcomeOK,
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
