package booking

import (
	"context"
	"fmt"
	"time"

	availabilityRepo "confiido/database/repository/availability"
	sessionRepo "confiido/database/repository/session"
	"confiido/models"
)

// DefaultGranularityMinutes is the fixed base slot width.
const DefaultGranularityMinutes = 15

// SlotCalculator produces bookable time slots for a mentor and date from the
// weekly availability template, marking cells occupied by active sessions.
type SlotCalculator struct {
	Availability availabilityRepo.AvailabilityRepository
	Sessions     sessionRepo.SessionRepository
	Granularity  int
}

func NewSlotCalculator(avail availabilityRepo.AvailabilityRepository, sessions sessionRepo.SessionRepository, granularity int) *SlotCalculator {
	if granularity <= 0 {
		granularity = DefaultGranularityMinutes
	}
	return &SlotCalculator{Availability: avail, Sessions: sessions, Granularity: granularity}
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// formatClock converts minutes from midnight to zero-padded "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// baseCell is one granularity-wide interval in minutes from midnight.
type baseCell struct {
	start, end int
	available  bool
}

// effectiveGranularity is the template's grid width, falling back to the
// calculator default when the template does not carry one.
func (sc *SlotCalculator) effectiveGranularity(tpl *models.AvailabilityTemplate) int {
	if tpl != nil && tpl.GranularityMinutes > 0 {
		return tpl.GranularityMinutes
	}
	return sc.Granularity
}

// materializeCells expands a template's ranges into the base grid. Cells that
// would spill past a range's end are not produced.
func (sc *SlotCalculator) materializeCells(tpl *models.AvailabilityTemplate, gran int) ([]baseCell, error) {
	var cells []baseCell
	for _, r := range tpl.Ranges {
		start, err := parseClock(r.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(r.End)
		if err != nil {
			return nil, err
		}
		for cur := start; cur+gran <= end; cur += gran {
			cells = append(cells, baseCell{start: cur, end: cur + gran, available: true})
		}
	}
	return cells, nil
}

// markOccupied flags every cell whose interval intersects an active session.
func markOccupied(cells []baseCell, sessions []models.Session) error {
	for _, s := range sessions {
		sStart, err := parseClock(s.StartTime)
		if err != nil {
			return err
		}
		sEnd, err := parseClock(s.EndTime)
		if err != nil {
			return err
		}
		for i := range cells {
			if cells[i].start < sEnd && cells[i].end > sStart {
				cells[i].available = false
			}
		}
	}
	return nil
}

// cellsFor returns the occupancy-marked grid and its effective granularity.
func (sc *SlotCalculator) cellsFor(ctx context.Context, mentorID, date string) ([]baseCell, int, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, 0, NewValidationError(fmt.Sprintf("invalid date %q", date))
	}

	tpl, err := sc.Availability.GetByMentorWeekday(ctx, mentorID, int(day.Weekday()))
	if err != nil {
		return nil, 0, err
	}
	if tpl == nil {
		// No template for that weekday means no availability, not an error.
		return nil, sc.Granularity, nil
	}

	gran := sc.effectiveGranularity(tpl)
	cells, err := sc.materializeCells(tpl, gran)
	if err != nil {
		return nil, 0, err
	}

	active, err := sc.Sessions.ActiveSessionsByMentorDate(ctx, mentorID, date)
	if err != nil {
		return nil, 0, err
	}
	if err := markOccupied(cells, active); err != nil {
		return nil, 0, err
	}
	return cells, gran, nil
}

// GetSlots returns the ordered base grid for a mentor and date.
func (sc *SlotCalculator) GetSlots(ctx context.Context, mentorID, date string) ([]models.Slot, error) {
	cells, _, err := sc.cellsFor(ctx, mentorID, date)
	if err != nil {
		return nil, err
	}
	slots := make([]models.Slot, 0, len(cells))
	for _, c := range cells {
		slots = append(slots, models.Slot{
			StartTime: formatClock(c.start),
			EndTime:   formatClock(c.end),
			Available: c.available,
		})
	}
	return slots, nil
}

// GetConsecutiveSlots slides a window of durationMinutes across the base grid
// at granularity steps. Windows spilling past a range's end, or spanning a gap
// between ranges, are not enumerated. A window ending exactly at the range end
// is included.
func (sc *SlotCalculator) GetConsecutiveSlots(ctx context.Context, mentorID, date string, durationMinutes int) ([]models.ConsecutiveSlot, error) {
	if durationMinutes <= 0 {
		return nil, NewValidationError(fmt.Sprintf("duration %d must be positive", durationMinutes))
	}

	cells, gran, err := sc.cellsFor(ctx, mentorID, date)
	if err != nil {
		return nil, err
	}
	if durationMinutes%gran != 0 {
		return nil, NewValidationError(fmt.Sprintf("duration %d is not a multiple of %d minutes", durationMinutes, gran))
	}
	return slideWindows(cells, gran, durationMinutes), nil
}

// slideWindows enumerates every durationMinutes window over the grid. The span
// is computed from the grid's own granularity so a template with a coarser or
// finer grid than the calculator default still yields correctly sized windows.
func slideWindows(cells []baseCell, gran, durationMinutes int) []models.ConsecutiveSlot {
	span := durationMinutes / gran
	var windows []models.ConsecutiveSlot
	for i := 0; i+span <= len(cells); i++ {
		contiguous := true
		available := cells[i].available
		for j := i + 1; j < i+span; j++ {
			if cells[j].start != cells[j-1].end {
				contiguous = false
				break
			}
			if !cells[j].available {
				available = false
			}
		}
		if !contiguous {
			continue
		}
		windows = append(windows, models.ConsecutiveSlot{
			StartTime: formatClock(cells[i].start),
			EndTime:   formatClock(cells[i].start + durationMinutes),
			Available: available,
		})
	}
	return windows
}

// ValidateWindow checks that [startTime, startTime+duration) is aligned to the
// grid and fully contained in the mentor's availability, and reports whether
// it is currently free of active sessions. Used by createSession to defend
// against races between slot listing and booking submission.
func (sc *SlotCalculator) ValidateWindow(ctx context.Context, mentorID, date, startTime string, durationMinutes int) (bool, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return false, NewValidationError(err.Error())
	}
	if durationMinutes <= 0 {
		return false, NewValidationError(fmt.Sprintf("duration %d must be positive", durationMinutes))
	}

	cells, gran, err := sc.cellsFor(ctx, mentorID, date)
	if err != nil {
		return false, err
	}
	if start%gran != 0 {
		return false, NewValidationError(fmt.Sprintf("start time %s is not aligned to the %d-minute grid", startTime, gran))
	}
	if durationMinutes%gran != 0 {
		return false, NewValidationError(fmt.Sprintf("duration %d is not a multiple of %d minutes", durationMinutes, gran))
	}

	for _, w := range slideWindows(cells, gran, durationMinutes) {
		if w.StartTime == startTime {
			return w.Available, nil
		}
	}
	return false, NewValidationError(fmt.Sprintf("window %s+%dm is outside the mentor's availability on %s", startTime, durationMinutes, date))
}
