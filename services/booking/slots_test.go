package booking

import (
	"context"
	"testing"
	"time"

	"confiido/models"
)

// 2025-03-03 is a Monday.
const testDate = "2025-03-03"

func seedSession(t *testing.T, repo *fakeSessionRepo, id, start, end string) {
	t.Helper()
	_, err := repo.CreateSessionWithBooking(context.Background(), &models.Session{
		ID:            id,
		MentorID:      "mentor-1",
		ClientID:      "client-1",
		ScheduledDate: testDate,
		StartTime:     start,
		EndTime:       end,
		Status:        models.SessionPending,
		Active:        true,
		TimeoutAt:     time.Date(2025, 3, 3, 8, 5, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed session %s: %v", id, err)
	}
}

func TestGetSlotsMarksOccupiedCells(t *testing.T) {
	avail := newStubAvailability(1, 15, models.TimeRange{Start: "09:00", End: "12:00"})
	repo := newFakeSessionRepo()
	seedSession(t, repo, "s1", "10:00", "11:00")
	calc := NewSlotCalculator(avail, repo, 15)

	slots, err := calc.GetSlots(context.Background(), "mentor-1", testDate)
	if err != nil {
		t.Fatalf("GetSlots: %v", err)
	}
	if got := len(slots); got != 12 {
		t.Fatalf("expected 12 base slots, got %d", got)
	}
	for _, s := range slots {
		occupied := s.StartTime >= "10:00" && s.StartTime < "11:00"
		if s.Available == occupied {
			t.Fatalf("slot %s-%s: available=%v, want %v", s.StartTime, s.EndTime, s.Available, !occupied)
		}
	}
	if slots[0].StartTime != "09:00" || slots[11].EndTime != "12:00" {
		t.Fatalf("grid bounds wrong: %s .. %s", slots[0].StartTime, slots[11].EndTime)
	}
}

func TestGetSlotsNoTemplateMeansNoAvailability(t *testing.T) {
	avail := newStubAvailability(2, 15, models.TimeRange{Start: "09:00", End: "12:00"})
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 15)

	// Monday has no template, only Tuesday does.
	slots, err := calc.GetSlots(context.Background(), "mentor-1", testDate)
	if err != nil {
		t.Fatalf("GetSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestGetSlotsDropsPartialTrailingCell(t *testing.T) {
	avail := newStubAvailability(1, 15, models.TimeRange{Start: "09:00", End: "09:50"})
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 15)

	slots, err := calc.GetSlots(context.Background(), "mentor-1", testDate)
	if err != nil {
		t.Fatalf("GetSlots: %v", err)
	}
	if got := len(slots); got != 3 {
		t.Fatalf("expected 3 slots in 09:00-09:50, got %d", got)
	}
	if slots[2].EndTime != "09:45" {
		t.Fatalf("expected last cell to end 09:45, got %s", slots[2].EndTime)
	}
}

func consecutiveByStart(windows []models.ConsecutiveSlot) map[string]bool {
	out := make(map[string]bool, len(windows))
	for _, w := range windows {
		out[w.StartTime] = w.Available
	}
	return out
}

func TestGetConsecutiveSlotsSixtyMinuteWindows(t *testing.T) {
	avail := newStubAvailability(1, 30, models.TimeRange{Start: "09:00", End: "12:00"})
	repo := newFakeSessionRepo()
	seedSession(t, repo, "s1", "10:00", "11:00")
	calc := NewSlotCalculator(avail, repo, 30)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 60)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	got := consecutiveByStart(windows)
	want := map[string]bool{
		"09:00": true,
		"09:30": false,
		"10:00": false,
		"10:30": false,
		"11:00": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d windows, got %d: %v", len(want), len(got), got)
	}
	for start, available := range want {
		if got[start] != available {
			t.Fatalf("window %s: available=%v, want %v", start, got[start], available)
		}
	}
}

func TestGetConsecutiveSlotsThirtyMinuteWindows(t *testing.T) {
	avail := newStubAvailability(1, 30, models.TimeRange{Start: "09:00", End: "12:00"})
	repo := newFakeSessionRepo()
	seedSession(t, repo, "s1", "10:00", "11:00")
	calc := NewSlotCalculator(avail, repo, 30)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 30)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	got := consecutiveByStart(windows)
	for _, start := range []string{"09:00", "09:30", "11:00", "11:30"} {
		if !got[start] {
			t.Fatalf("expected window %s to be available: %v", start, got)
		}
	}
	for _, start := range []string{"10:00", "10:30"} {
		if got[start] {
			t.Fatalf("expected window %s to be occupied", start)
		}
	}
}

func TestGetConsecutiveSlotsStepsAtFifteenMinutes(t *testing.T) {
	avail := newStubAvailability(1, 15, models.TimeRange{Start: "09:00", End: "12:00"})
	repo := newFakeSessionRepo()
	seedSession(t, repo, "s1", "10:30", "11:00")
	calc := NewSlotCalculator(avail, repo, 15)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 60)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	got := consecutiveByStart(windows)
	// Hour-long windows start at every 15-minute step of the grid, not only
	// on the hour.
	want := map[string]bool{
		"09:00": true,
		"09:15": true,
		"09:30": true,
		"09:45": false,
		"10:00": false,
		"10:15": false,
		"10:30": false,
		"10:45": false,
		"11:00": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d windows, got %d: %v", len(want), len(got), got)
	}
	for start, available := range want {
		if got[start] != available {
			t.Fatalf("window %s: available=%v, want %v", start, got[start], available)
		}
	}
}

func TestGetConsecutiveSlotsUsesTemplateGranularity(t *testing.T) {
	// The template's grid is coarser than the calculator default; windows must
	// follow the template's grid.
	avail := newStubAvailability(1, 30, models.TimeRange{Start: "09:00", End: "11:00"})
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 15)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 60)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows on the 30-minute grid, got %d: %v", len(windows), windows)
	}
	if windows[0].StartTime != "09:00" || windows[0].EndTime != "10:00" {
		t.Fatalf("expected first window 09:00-10:00, got %s-%s", windows[0].StartTime, windows[0].EndTime)
	}
	if windows[2].StartTime != "10:00" || windows[2].EndTime != "11:00" {
		t.Fatalf("expected last window 10:00-11:00, got %s-%s", windows[2].StartTime, windows[2].EndTime)
	}

	// 45 fits the calculator default but not the template's grid.
	if _, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 45); ErrCode(err) != CodeValidation {
		t.Fatalf("expected validation error for duration off the template grid, got %v", err)
	}
}

func TestGetConsecutiveSlotsWindowMayEndAtRangeEnd(t *testing.T) {
	avail := newStubAvailability(1, 30, models.TimeRange{Start: "09:00", End: "10:00"})
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 30)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 60)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	if len(windows) != 1 || windows[0].StartTime != "09:00" || windows[0].EndTime != "10:00" {
		t.Fatalf("expected single 09:00-10:00 window, got %v", windows)
	}
}

func TestGetConsecutiveSlotsDoesNotSpanRangeGaps(t *testing.T) {
	avail := newStubAvailability(1, 30,
		models.TimeRange{Start: "09:00", End: "10:00"},
		models.TimeRange{Start: "13:00", End: "14:00"},
	)
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 30)

	windows, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 60)
	if err != nil {
		t.Fatalf("GetConsecutiveSlots: %v", err)
	}
	got := consecutiveByStart(windows)
	if len(got) != 2 || !got["09:00"] || !got["13:00"] {
		t.Fatalf("expected only 09:00 and 13:00 windows, got %v", got)
	}
}

func TestGetConsecutiveSlotsRejectsOffGridDuration(t *testing.T) {
	avail := newStubAvailability(1, 30, models.TimeRange{Start: "09:00", End: "12:00"})
	calc := NewSlotCalculator(avail, newFakeSessionRepo(), 30)

	_, err := calc.GetConsecutiveSlots(context.Background(), "mentor-1", testDate, 45)
	if ErrCode(err) != CodeValidation {
		t.Fatalf("expected validation error for 45-minute duration, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	avail := newStubAvailability(1, 15, models.TimeRange{Start: "09:00", End: "12:00"})
	repo := newFakeSessionRepo()
	seedSession(t, repo, "s1", "10:00", "11:00")
	calc := NewSlotCalculator(avail, repo, 15)
	ctx := context.Background()

	free, err := calc.ValidateWindow(ctx, "mentor-1", testDate, "09:00", 60)
	if err != nil || !free {
		t.Fatalf("expected 09:00+60m free, got free=%v err=%v", free, err)
	}

	free, err = calc.ValidateWindow(ctx, "mentor-1", testDate, "10:30", 60)
	if err != nil || free {
		t.Fatalf("expected 10:30+60m occupied, got free=%v err=%v", free, err)
	}

	if _, err := calc.ValidateWindow(ctx, "mentor-1", testDate, "11:30", 60); ErrCode(err) != CodeValidation {
		t.Fatalf("expected validation error for window past availability, got %v", err)
	}

	if _, err := calc.ValidateWindow(ctx, "mentor-1", testDate, "09:10", 30); ErrCode(err) != CodeValidation {
		t.Fatalf("expected validation error for off-grid start, got %v", err)
	}
}
