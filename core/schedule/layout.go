package schedule

import (
	"sort"
	"time"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

// Default visible day window
var (
	DefaultDayStart = catalog.NewClock(8, 0)
	DefaultDayEnd   = catalog.NewClock(22, 0)
)

type CalendarOptions struct {
	DayStart catalog.Clock // zero means DefaultDayStart
	DayEnd   catalog.Clock // zero means DefaultDayEnd
	Weekend  bool          // always include Saturday and Sunday
}

// Block is a meeting positioned in its day column.
// Top and Height are fractions of the visible window, Column is 0-based out of Columns.
type Block struct {
	CourseID  string        `json:"courseId"`
	Label     string        `json:"label"`
	Title     string        `json:"title"`
	Color     string        `json:"color"`
	Location  string        `json:"location"`
	Start     catalog.Clock `json:"start"`
	End       catalog.Clock `json:"end"`
	Top       float64       `json:"top"`
	Height    float64       `json:"height"`
	Column    int           `json:"column"`
	Columns   int           `json:"columns"`
	ClassNbr  int           `json:"classNbr"`
	Component string        `json:"component"`
}

type CalendarDay struct {
	Day    time.Weekday `json:"day"`
	Name   string       `json:"name"`
	Blocks []Block      `json:"blocks"`
}

type Calendar struct {
	Roster      string        `json:"roster"`
	DayStart    catalog.Clock `json:"dayStart"`
	DayEnd      catalog.Clock `json:"dayEnd"`
	Days        []CalendarDay `json:"days"`
	Unscheduled []Block       `json:"unscheduled"` // TBA meetings
}

// Layout computes the weekly calendar view of a schedule.
func Layout(sched Schedule, opts CalendarOptions) (Calendar, error) {
	dayStart, dayEnd := opts.DayStart, opts.DayEnd
	if dayStart == 0 {
		dayStart = DefaultDayStart
	}
	if dayEnd == 0 {
		dayEnd = DefaultDayEnd
	}
	if dayEnd <= dayStart || dayEnd > catalog.NewClock(24, 0) {
		return Calendar{}, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must be after start"})
	}

	byDay := make(map[time.Weekday][]Block, 7)
	unscheduled := make([]Block, 0)
	for _, c := range sched.Courses {
		for _, sec := range c.Sections {
			for _, m := range sec.Meetings {
				b := Block{
					CourseID:  c.ID,
					Label:     c.label(sec),
					Title:     c.Title,
					Color:     c.Color,
					Location:  m.Location(),
					Start:     m.Start,
					End:       m.End,
					ClassNbr:  sec.ClassNbr,
					Component: sec.Component,
				}
				if !m.IsScheduled() {
					unscheduled = append(unscheduled, b)
					continue
				}
				for _, d := range m.Days {
					byDay[d] = append(byDay[d], b)
				}
				// widen the window to the hour
				if m.Start < dayStart {
					dayStart = catalog.NewClock(m.Start.Hour(), 0)
				}
				if m.End > dayEnd {
					dayEnd = catalog.NewClock(m.End.Hour(), 0)
					if m.End.Minute() > 0 {
						dayEnd += 60
					}
				}
			}
		}
	}

	cal := Calendar{
		Roster:      sched.Roster,
		DayStart:    dayStart,
		DayEnd:      dayEnd,
		Days:        make([]CalendarDay, 0, 7),
		Unscheduled: unscheduled,
	}
	span := float64(dayEnd - dayStart)
	for _, d := range weekDays {
		blocks := byDay[d]
		if (d == time.Saturday || d == time.Sunday) && !opts.Weekend && len(blocks) == 0 {
			continue
		}
		if blocks == nil {
			blocks = []Block{}
		}
		for i := range blocks {
			blocks[i].Top = float64(blocks[i].Start-dayStart) / span
			blocks[i].Height = float64(blocks[i].End-blocks[i].Start) / span
		}
		packColumns(blocks)
		cal.Days = append(cal.Days, CalendarDay{Day: d, Name: d.String(), Blocks: blocks})
	}
	return cal, nil
}

var weekDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// packColumns sorts the blocks of a day and spreads overlapping ones over columns.
// Each group of transitively overlapping blocks shares the same Columns count.
func packColumns(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Start != blocks[j].Start {
			return blocks[i].Start < blocks[j].Start
		}
		return blocks[i].End > blocks[j].End
	})

	var (
		groupStart int
		groupEnd   catalog.Clock
		colEnds    []catalog.Clock
	)
	closeGroup := func(end int) {
		for k := groupStart; k < end; k++ {
			blocks[k].Columns = len(colEnds)
		}
	}
	for i := range blocks {
		b := &blocks[i]
		if i > 0 && b.Start >= groupEnd {
			closeGroup(i)
			groupStart, colEnds = i, colEnds[:0]
		}

		placed := false
		for col, end := range colEnds {
			if end <= b.Start {
				b.Column, colEnds[col], placed = col, b.End, true
				break
			}
		}
		if !placed {
			b.Column = len(colEnds)
			colEnds = append(colEnds, b.End)
		}
		if b.End > groupEnd {
			groupEnd = b.End
		}
	}
	closeGroup(len(blocks))
}
