// Package schedule normalizes heterogeneous opening-hours data and answers
// point-in-time questions about it: open now, closing time, next opening.
//
// Three raw shapes occur in practice: a structured weekly JSON object, weekly
// string slots ("11:00-20:00"), and a legacy single daily range applied
// uniformly to every day. All of them normalize into minute-based slot lists
// before any evaluation runs. Malformed entries are dropped, never surfaced
// as errors; a schedule with no valid slots simply evaluates as closed.
package schedule

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var dayKeys = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

var slotStringRe = regexp.MustCompile(`^(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})$`)

// Slot is a contiguous open interval within one day, in minutes since local
// midnight. End <= Start marks an overnight slot spanning into the next day.
type Slot struct {
	Start int
	End   int
}

// Overnight reports whether the slot wraps past midnight.
func (s Slot) Overnight() bool { return s.End <= s.Start }

func (s Slot) contains(minute int) bool {
	if s.End > s.Start {
		return minute >= s.Start && minute <= s.End
	}
	return minute >= s.Start || minute <= s.End
}

type kind int

const (
	kindNone kind = iota
	kindWeekly
	kindRange
)

// Schedule is the canonical normalized form of any opening-hours source.
// The zero value is a schedule with no slots (always closed).
type Schedule struct {
	kind kind
	days [7][]Slot // kindWeekly, indexed Sunday=0..Saturday=6
	slot Slot      // kindRange, one universal daily slot
}

// NextOpening names the next time a schedule opens: DayOffset days from
// now (0 = later today) at Label ("HH:MM").
type NextOpening struct {
	DayOffset int    `json:"day_offset"`
	Label     string `json:"label"`
}

// Status is the derived open/closed view of a schedule at one instant.
// ClosingLabel is set only when open, Next only when closed, so the two
// can never imply "open" and "opens later" at the same time.
type Status struct {
	Open         bool         `json:"open"`
	ClosingLabel string       `json:"closing_label,omitempty"`
	Next         *NextOpening `json:"next_opening,omitempty"`
}

// ParseWeeklyJSON normalizes a persisted schedule_json document. The
// document is an object keyed by sun..sat (any capitalization), each value
// an array whose elements are either "H:MM-H:MM" strings or
// {"start":"HH:MM","end":"HH:MM"} objects. Anything unrecognized is
// dropped.
func ParseWeeklyJSON(data []byte) Schedule {
	if len(data) == 0 {
		return Schedule{}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Schedule{}
	}

	lowered := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(k)] = v
	}

	s := Schedule{kind: kindWeekly}
	any := false
	for day, key := range dayKeys {
		entries, ok := lowered[key]
		if !ok {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(entries, &elems); err != nil {
			continue
		}
		for _, e := range elems {
			if slot, ok := parseSlotElement(e); ok {
				s.days[day] = append(s.days[day], slot)
				any = true
			}
		}
	}
	if !any {
		return Schedule{}
	}
	return s
}

// ParseRange normalizes a legacy "HH:MM - HH:MM" range applied uniformly
// across all days. Whitespace around the hyphen is tolerated.
func ParseRange(r string) Schedule {
	m := slotStringRe.FindStringSubmatch(strings.TrimSpace(r))
	if m == nil {
		return Schedule{}
	}
	start, ok1 := parseHM(m[1])
	end, ok2 := parseHM(m[2])
	if !ok1 || !ok2 {
		return Schedule{}
	}
	return Schedule{kind: kindRange, slot: Slot{Start: start, End: end}}
}

func parseSlotElement(raw json.RawMessage) (Slot, bool) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		m := slotStringRe.FindStringSubmatch(strings.TrimSpace(str))
		if m == nil {
			return Slot{}, false
		}
		return buildSlot(m[1], m[2])
	}

	var obj struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Start != "" && obj.End != "" {
		return buildSlot(obj.Start, obj.End)
	}
	return Slot{}, false
}

func buildSlot(start, end string) (Slot, bool) {
	s, ok1 := parseHM(start)
	e, ok2 := parseHM(end)
	if !ok1 || !ok2 {
		return Slot{}, false
	}
	return Slot{Start: s, End: e}, true
}

func parseHM(hm string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(hm), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatMinutes renders a minute-of-day value as zero-padded "HH:MM".
// Values outside one day wrap modulo 1440.
func FormatMinutes(m int) string {
	m = ((m % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func minuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// HasSlots reports whether any valid slot was normalized.
func (s Schedule) HasSlots() bool { return s.kind != kindNone }

// SlotsForDay returns the normalized slots for a weekday, sorted ascending
// by start time.
func (s Schedule) SlotsForDay(day time.Weekday) []Slot {
	var slots []Slot
	switch s.kind {
	case kindWeekly:
		slots = append(slots, s.days[int(day)]...)
	case kindRange:
		slots = []Slot{s.slot}
	default:
		return nil
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

// IsOpenAt reports whether any slot of now's weekday covers the current
// minute, including overnight wraparound.
func (s Schedule) IsOpenAt(now time.Time) bool {
	cur := minuteOfDay(now)
	for _, slot := range s.SlotsForDay(now.Weekday()) {
		if slot.contains(cur) {
			return true
		}
	}
	return false
}

// ClosingTime returns the "HH:MM" end of the slot currently covering now.
// For weekly schedules it also checks yesterday's slots for an overnight
// slot whose wraparound still covers now; such a slot opened yesterday but
// is still active. The second return value is false when nothing matches.
func (s Schedule) ClosingTime(now time.Time) (string, bool) {
	cur := minuteOfDay(now)

	switch s.kind {
	case kindRange:
		if s.slot.contains(cur) {
			return FormatMinutes(s.slot.End), true
		}
		return "", false

	case kindWeekly:
		for _, slot := range s.SlotsForDay(now.Weekday()) {
			if !slot.Overnight() {
				if cur >= slot.Start && cur <= slot.End {
					return FormatMinutes(slot.End), true
				}
			} else if cur >= slot.Start {
				return FormatMinutes(slot.End), true
			}
		}
		yesterday := (now.Weekday() + 6) % 7
		for _, slot := range s.SlotsForDay(yesterday) {
			if slot.End < slot.Start && cur <= slot.End {
				return FormatMinutes(slot.End), true
			}
		}
	}
	return "", false
}

// NextOpeningAt scans today's remaining slots for the first start after
// now, then each of the next seven days for the first day with any slot.
// The second return value is false when the schedule has no slots at all.
func (s Schedule) NextOpeningAt(now time.Time) (NextOpening, bool) {
	if s.kind == kindNone {
		return NextOpening{}, false
	}
	cur := minuteOfDay(now)
	today := now.Weekday()

	for _, slot := range s.SlotsForDay(today) {
		if cur < slot.Start {
			return NextOpening{DayOffset: 0, Label: FormatMinutes(slot.Start)}, true
		}
	}
	for i := 1; i <= 7; i++ {
		day := (today + time.Weekday(i)) % 7
		slots := s.SlotsForDay(day)
		if len(slots) > 0 {
			return NextOpening{DayOffset: i, Label: FormatMinutes(slots[0].Start)}, true
		}
	}
	return NextOpening{}, false
}

// StatusAt derives the full open/closed status for one instant. Open and
// next-opening are mutually exclusive by construction.
func (s Schedule) StatusAt(now time.Time) Status {
	if s.IsOpenAt(now) {
		st := Status{Open: true}
		if label, ok := s.ClosingTime(now); ok {
			st.ClosingLabel = label
		}
		return st
	}
	st := Status{}
	if next, ok := s.NextOpeningAt(now); ok {
		st.Next = &next
	}
	return st
}
