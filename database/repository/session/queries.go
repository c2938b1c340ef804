package sessionRepo

import (
	"context"
	"fmt"
	"time"

	"confiido/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoSessionRepo) decodeSessions(ctx context.Context, cursor *mongo.Cursor) ([]models.Session, error) {
	defer cursor.Close(ctx)

	var sessions []models.Session
	for cursor.Next(ctx) {
		var s models.Session
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("error decoding session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return sessions, nil
}

// ActiveSessionsByMentorDate returns pending and paid sessions for a mentor
// on a given date, ordered by start time.
func (repo *MongoSessionRepo) ActiveSessionsByMentorDate(ctx context.Context, mentorID, date string) ([]models.Session, error) {
	filter := bson.M{
		"mentor_id":      mentorID,
		"scheduled_date": date,
		"active":         true,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := repo.sessionColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding active sessions: %w", err)
	}
	return repo.decodeSessions(ctx, cursor)
}

// PendingSessionsDueBefore returns pending sessions whose payment deadline
// passed before cutoff.
func (repo *MongoSessionRepo) PendingSessionsDueBefore(ctx context.Context, cutoff time.Time, clientID string) ([]models.Session, error) {
	filter := bson.M{
		"status":     models.SessionPending,
		"timeout_at": bson.M{"$lt": cutoff},
	}
	if clientID != "" {
		filter["client_id"] = clientID
	}
	cursor, err := repo.sessionColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding due sessions: %w", err)
	}
	return repo.decodeSessions(ctx, cursor)
}

// SessionsByClient returns all of a client's sessions, most recent first.
func (repo *MongoSessionRepo) SessionsByClient(ctx context.Context, clientID string) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.sessionColl.Find(ctx, bson.M{"client_id": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding client sessions: %w", err)
	}
	return repo.decodeSessions(ctx, cursor)
}

// SessionsByIDs batch-fetches sessions for the reconciliation lookups.
func (repo *MongoSessionRepo) SessionsByIDs(ctx context.Context, sessionIDs []string) ([]models.Session, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	cursor, err := repo.sessionColl.Find(ctx, bson.M{"id": bson.M{"$in": sessionIDs}})
	if err != nil {
		return nil, fmt.Errorf("error finding sessions by ids: %w", err)
	}
	return repo.decodeSessions(ctx, cursor)
}
