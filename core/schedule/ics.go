package schedule

import (
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

const defaultTimezone = "America/New_York"

var icsDays = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

const (
	icsLocalFormat = "20060102T150405"
	icsUTCFormat   = "20060102T150405Z"
)

// writeICS writes one weekly recurring event per scheduled meeting.
func (svc *Service) writeICS(sched Schedule, w io.Writer) error {
	now := svc.now()
	tzid := svc.loc.String()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//" + svc.appName + "//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s %s", svc.appName, sched.Roster))
	cal.SetXWRTimezone(tzid)
	addTimezone(cal, svc.loc, now.Year()-1)

	for _, c := range sched.Courses {
		for _, sec := range c.Sections {
			for i, m := range sec.Meetings {
				if !m.IsScheduled() {
					continue
				}
				first := firstOccurrence(m, now.In(svc.loc))
				start, end := m.Start.On(first, svc.loc), m.End.On(first, svc.loc)

				event := cal.AddEvent(fmt.Sprintf("%s-%d-%d@%s", c.ID, sec.ClassNbr, i, strings.ToLower(sched.Roster)))
				event.SetDtStampTime(now)
				event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalFormat), tzParam(tzid))
				event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalFormat), tzParam(tzid))
				event.AddRrule(rrule(m, svc.loc))
				event.SetSummary(c.label(sec))
				if loc := m.Location(); loc != "" {
					event.SetLocation(loc)
				}
				event.SetDescription(description(c, m))
			}
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return errors.Wrap(err, "writing calendar")
	}
	return nil
}

// addTimezone describes loc with the yearly rules it follows in year.
// Zones without daylight saving get a single STANDARD observance.
func addTimezone(cal *ics.Calendar, loc *time.Location, year int) {
	tz := cal.AddTimezone(loc.String())

	prev := time.Date(year, 1, 1, 12, 0, 0, 0, loc)
	for d := 1; d <= 366; d++ {
		next := time.Date(year, 1, 1+d, 12, 0, 0, 0, loc)
		_, before := prev.Zone()
		_, after := next.Zone()
		if before != after {
			at := transitionAt(prev, next)
			name, _ := next.Zone()
			tz.Components = append(tz.Components, observance(at, before, after, name, next.IsDST()))
		}
		prev = next
	}
	if len(tz.Components) == 0 {
		name, offset := prev.Zone()
		tz.Components = append(tz.Components, observance(time.Unix(0, 0), offset, offset, name, false))
	}
}

// transitionAt narrows the offset change between lo and hi down to the minute.
func transitionAt(lo, hi time.Time) time.Time {
	_, before := lo.Zone()
	for hi.Sub(lo) > time.Minute {
		mid := lo.Add(hi.Sub(lo) / 2)
		if _, off := mid.Zone(); off == before {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.Truncate(time.Minute)
}

func observance(at time.Time, from, to int, name string, dst bool) ics.Component {
	// DTSTART is the wall clock in effect just before the change
	local := at.UTC().Add(time.Duration(from) * time.Second)

	var base ics.ComponentBase
	base.SetProperty(ics.ComponentPropertyDtStart, local.Format(icsLocalFormat))
	base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), utcOffset(from))
	base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), utcOffset(to))
	base.SetProperty(ics.ComponentProperty(ics.PropertyTzname), name)
	if from != to {
		base.AddRrule(yearlyRule(local))
	}
	if dst {
		return &ics.Daylight{ComponentBase: base}
	}
	return &ics.Standard{ComponentBase: base}
}

// yearlyRule repeats the weekday of day within its month, eg. the 2nd or last Sunday of March.
func yearlyRule(day time.Time) string {
	n := (day.Day()-1)/7 + 1
	if day.AddDate(0, 0, 7).Month() != day.Month() {
		n = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(day.Month()), n, icsDays[day.Weekday()])
}

// utcOffset formats seconds east of UTC as +hhmm.
func utcOffset(secs int) string {
	sign := "+"
	if secs < 0 {
		sign, secs = "-", -secs
	}
	return fmt.Sprintf("%s%02d%02d", sign, secs/3600, secs%3600/60)
}

func tzParam(tzid string) ics.PropertyParameter {
	return &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{tzid}}
}

// firstOccurrence returns the first meeting day on or after the meeting start date.
// Meetings without dates start on the week of `now`.
func firstOccurrence(m catalog.Meeting, now time.Time) time.Time {
	day := m.StartDate
	if day.IsZero() {
		day = now.AddDate(0, 0, -weekdayIndex(now.Weekday()))
	}
	for i := 0; i < 7; i++ {
		if m.MeetsOn(day.Weekday()) {
			break
		}
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func rrule(m catalog.Meeting, loc *time.Location) string {
	days := make([]string, 0, len(m.Days))
	for _, d := range m.Days {
		days = append(days, icsDays[d])
	}
	rule := "FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
	if !m.EndDate.IsZero() {
		y, mo, d := m.EndDate.Date()
		until := time.Date(y, mo, d, 23, 59, 59, 0, loc).UTC()
		rule += ";UNTIL=" + until.Format(icsUTCFormat)
	}
	return rule
}

func description(c ScheduledCourse, m catalog.Meeting) string {
	lines := []string{c.Title}
	if len(m.Instructors) > 0 {
		names := make([]string, len(m.Instructors))
		for i, in := range m.Instructors {
			names[i] = in.Name()
		}
		lines = append(lines, "Instructors: "+strings.Join(names, ", "))
	}
	lines = append(lines, fmt.Sprintf("%s %s-%s", m.Pattern, m.Start, m.End))
	return strings.Join(lines, "\n")
}

// weekdayIndex orders weeks Monday first.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
