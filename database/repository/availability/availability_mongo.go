package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"confiido/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Upsert replaces the template for (mentor, weekday), creating it when absent.
func (repo *mongoAvailabilityRepo) Upsert(ctx context.Context, tpl *models.AvailabilityTemplate) error {
	filter := bson.M{"mentor_id": tpl.MentorID, "weekday": tpl.Weekday}
	update := bson.M{"$set": bson.M{
		"id":                  tpl.ID,
		"mentor_id":           tpl.MentorID,
		"weekday":             tpl.Weekday,
		"ranges":              tpl.Ranges,
		"granularity_minutes": tpl.GranularityMinutes,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := repo.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error upserting availability template: %w", err)
	}
	return nil
}

// GetByMentorWeekday returns nil (not an error) when the mentor has no
// template for that weekday; the caller reports empty availability.
func (repo *mongoAvailabilityRepo) GetByMentorWeekday(ctx context.Context, mentorID string, weekday int) (*models.AvailabilityTemplate, error) {
	filter := bson.M{"mentor_id": mentorID, "weekday": weekday}
	var tpl models.AvailabilityTemplate
	if err := repo.coll.FindOne(ctx, filter).Decode(&tpl); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching availability template: %w", err)
	}
	return &tpl, nil
}

// ListByMentor returns all of a mentor's weekly templates.
func (repo *mongoAvailabilityRepo) ListByMentor(ctx context.Context, mentorID string) ([]models.AvailabilityTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}})
	cursor, err := repo.coll.Find(ctx, bson.M{"mentor_id": mentorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing availability templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []models.AvailabilityTemplate
	for cursor.Next(ctx) {
		var tpl models.AvailabilityTemplate
		if err := cursor.Decode(&tpl); err != nil {
			return nil, fmt.Errorf("error decoding availability template: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return templates, nil
}

// EnsureIndexes creates the indexes on the availability template collection.
func (repo *mongoAvailabilityRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mentor_id", Value: 1}, {Key: "weekday", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("mentor_weekday_idx"),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create availability indexes: %w", err)
	}
	return nil
}
