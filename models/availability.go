package models

// TimeRange is a continuous block within a day, "HH:MM" inclusive start,
// exclusive end.
type TimeRange struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// AvailabilityTemplate is a mentor's recurring weekly window for one weekday.
// Created and edited by the mentor; read-only to the booking flow.
type AvailabilityTemplate struct {
	ID                 string      `bson:"id" json:"id"`
	MentorID           string      `bson:"mentor_id" json:"mentorId"`
	Weekday            int         `bson:"weekday" json:"weekday"` // time.Weekday, 0 = Sunday
	Ranges             []TimeRange `bson:"ranges" json:"ranges"`
	GranularityMinutes int         `bson:"granularity_minutes" json:"granularityMinutes"`
}

// SetupAvailabilityRequest defines the payload for configuring weekly windows.
type SetupAvailabilityRequest struct {
	Weekday int         `json:"weekday"`
	Ranges  []TimeRange `json:"ranges" binding:"required"`
}
