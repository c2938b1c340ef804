package sessionRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the sessions, bookings and
// session_holds collections. The unique hold-cell index is the
// at-most-one-reservation-per-cell guarantee that makes concurrent overlapping
// windows conflict; holds are deleted on terminal transitions so released
// windows can be re-booked.
func (repo *MongoSessionRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{
				{Key: "mentor_id", Value: 1},
				{Key: "scheduled_date", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}).
				SetName("unique_active_slot"),
		},
		{
			Keys:    bson.D{{Key: "mentor_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetName("mentor_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "timeout_at", Value: 1}},
			Options: options.Index().SetName("status_timeout_idx"),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("client_created_idx"),
		},
	}

	if _, err := repo.sessionColl.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	bookingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "mentor_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_pair"),
		},
	}

	if _, err := repo.bookingColl.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	holdIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "mentor_id", Value: 1},
				{Key: "scheduled_date", Value: 1},
				{Key: "cell_start", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("unique_hold_cell"),
		},
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetName("hold_session_idx"),
		},
	}

	if _, err := repo.holdColl.Indexes().CreateMany(ctx, holdIndexes); err != nil {
		return fmt.Errorf("failed to create hold indexes: %w", err)
	}
	return nil
}
