package availabilityRepo

import (
	"context"

	"confiido/database"
	"confiido/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityRepository manages mentors' weekly availability templates.
// Read-mostly; the booking flow never writes here.
type AvailabilityRepository interface {
	Upsert(ctx context.Context, tpl *models.AvailabilityTemplate) error
	GetByMentorWeekday(ctx context.Context, mentorID string, weekday int) (*models.AvailabilityTemplate, error)
	ListByMentor(ctx context.Context, mentorID string) ([]models.AvailabilityTemplate, error)
	EnsureIndexes() error
}

type mongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a new MongoDB AvailabilityRepository.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.MongoClient.Database("confiido")
	return &mongoAvailabilityRepo{
		coll: db.Collection("availability_templates"),
	}
}
