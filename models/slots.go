package models

// Slot is a fixed-granularity time cell produced from a mentor's
// availability template, flagged unavailable when an active session
// overlaps it.
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// ConsecutiveSlot is a window of base slots exactly matching a requested
// duration. Available only when every covered base slot is free.
type ConsecutiveSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}
