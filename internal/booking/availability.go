// internal/booking/availability.go
package booking

import (
	"sort"
	"time"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/scheduling"
)

const (
	dateDisplayLayout = "January 2"
	timeDisplayLayout = "3:04 PM"
	cardTimeLayout    = "1/2/2006 3:04 PM"
)

// SlotOffsets steps through every window from its start in interval increments and
// keeps each offset that lies inside the window (start inclusive, end exclusive).
// The result is sorted and free of duplicates when windows overlap.
func SlotOffsets(slots []scheduling.TimeSlot, interval time.Duration) ([]time.Duration, error) {
	if interval <= 0 {
		return nil, errors.NewStateNotFoundError("timeSlotInterval")
	}
	seen := make(map[time.Duration]bool)
	offsets := make([]time.Duration, 0)
	for _, slot := range slots {
		for off := slot.Start; off < slot.End; off += interval {
			if seen[off] {
				continue
			}
			seen[off] = true
			offsets = append(offsets, off)
		}
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}

// BusinessHoursTable precomputes the slot offsets of every weekday the business opens.
func BusinessHoursTable(hours []scheduling.BusinessHours, interval time.Duration) (map[time.Weekday][]time.Duration, error) {
	byDay := make(map[time.Weekday][]scheduling.TimeSlot)
	for _, h := range hours {
		byDay[h.Day] = append(byDay[h.Day], h.TimeSlots...)
	}
	table := make(map[time.Weekday][]time.Duration, len(byDay))
	for day, slots := range byDay {
		offsets, err := SlotOffsets(slots, interval)
		if err != nil {
			return nil, err
		}
		table[day] = offsets
	}
	return table, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DateChoices lists count consecutive calendar days starting on the day of available.
func DateChoices(available time.Time, count int, loc *time.Location) []TimeOption {
	first := midnight(available, loc)
	dates := make([]TimeOption, count)
	for i := range dates {
		d := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
		dates[i] = TimeOption{Value: d, DisplayName: d.Format(dateDisplayLayout)}
	}
	return dates
}

// TimeChoices combines the day's slot offsets with date and keeps the instants
// strictly after available.
func TimeChoices(date time.Time, table map[time.Weekday][]time.Duration, available time.Time, loc *time.Location) []TimeOption {
	day := midnight(date, loc)
	times := make([]TimeOption, 0)
	for _, off := range table[day.Weekday()] {
		// Wall-clock offset from local midnight.
		t := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, int(off), loc)
		if t.After(available) {
			times = append(times, TimeOption{Value: t, DisplayName: t.Format(timeDisplayLayout)})
		}
	}
	return times
}
