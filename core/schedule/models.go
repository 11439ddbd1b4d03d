package schedule

import (
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

var (
	// errors
	ErrNotFound        = errors.New("schedule not found")
	ErrCourseNotFound  = errors.New("scheduled course not found")
	ErrDuplicateCourse = errors.New("this course is already in the schedule")
	ErrEmptySchedule   = errors.New("the schedule has no courses")
)

// Palette holds the colors assigned to courses added without one.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#17becf", "#bcbd22", "#7f7f7f",
}

// SelectedSection is a snapshot of a catalog class section taken when it was picked.
type SelectedSection struct {
	ClassNbr  int               `json:"classNbr"`
	Component string            `json:"component"`
	Section   string            `json:"section"`
	Meetings  []catalog.Meeting `json:"meetings"`
}

type ScheduledCourse struct {
	ID          string            `json:"id"`
	CourseID    int               `json:"courseId"`
	Subject     string            `json:"subject"`
	CatalogNbr  string            `json:"catalogNbr"`
	Title       string            `json:"title"`
	EnrollGroup int               `json:"enrollGroup"`
	Sections    []SelectedSection `json:"sections"`
	Color       string            `json:"color"`
	Units       float64           `json:"units"`
	AddedAt     time.Time         `json:"addedAt"` // UTC
}

// Code returns the display code, eg. "CS 2110".
func (c ScheduledCourse) Code() string {
	return c.Subject + " " + c.CatalogNbr
}

func (c ScheduledCourse) label(s SelectedSection) string {
	return c.Code() + " " + s.Component + " " + s.Section
}

type Schedule struct {
	UserID    string            `json:"userId"`
	Roster    string            `json:"roster"`
	Courses   []ScheduledCourse `json:"courses"`
	CreatedAt time.Time         `json:"createdAt"` // UTC
	UpdatedAt time.Time         `json:"updatedAt"` // UTC
	SharedAt  *time.Time        `json:"sharedAt,omitempty"`
}

func (s Schedule) Units() float64 {
	var units float64
	for _, c := range s.Courses {
		units += c.Units
	}
	return units
}

func (s Schedule) Summary() Summary {
	return Summary{
		Roster:      s.Roster,
		CourseCount: len(s.Courses),
		Units:       s.Units(),
		UpdatedAt:   s.UpdatedAt,
	}
}

// Meetings flattens the meetings of every selected section.
func (s Schedule) Meetings() []campus.ScheduledMeeting {
	meetings := make([]campus.ScheduledMeeting, 0)
	for _, c := range s.Courses {
		for _, sec := range c.Sections {
			for _, m := range sec.Meetings {
				meetings = append(meetings, campus.ScheduledMeeting{
					Label:    c.label(sec),
					CourseID: c.ID,
					Meeting:  m,
				})
			}
		}
	}
	return meetings
}

func (s Schedule) courseIndex(id string) int {
	for i, c := range s.Courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// nextColor returns the first palette color not used yet.
func (s Schedule) nextColor() string {
	used := make(map[string]bool, len(s.Courses))
	for _, c := range s.Courses {
		used[c.Color] = true
	}
	for _, color := range Palette {
		if !used[color] {
			return color
		}
	}
	return Palette[len(s.Courses)%len(Palette)]
}

type Summary struct {
	Roster      string    `json:"roster"`
	CourseCount int       `json:"courseCount"`
	Units       float64   `json:"units"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func summaries(scheds []Schedule) []Summary {
	sort.SliceStable(scheds, func(i, j int) bool {
		return scheds[i].UpdatedAt.After(scheds[j].UpdatedAt)
	})
	sums := make([]Summary, len(scheds))
	for i, s := range scheds {
		sums[i] = s.Summary()
	}
	return sums
}

// NewScheduledCourse contains what is needed to add a course to a schedule.
// Sections lists one class number per component of the enroll group.
type NewScheduledCourse struct {
	Subject     string `json:"subject" validate:"required,subject"`
	CatalogNbr  string `json:"catalogNbr" validate:"required,catalognbr"`
	EnrollGroup int    `json:"enrollGroup" validate:"min=0"`
	Sections    []int  `json:"sections" validate:"required,min=1,dive,gt=0"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

func (nc *NewScheduledCourse) Validate(validate *validator.Validate) error {
	nc.Subject = core.CleanUpper(nc.Subject)
	nc.CatalogNbr = core.CleanString(nc.CatalogNbr)
	nc.Color = core.CleanString(nc.Color, true /* lower */)
	return validate.Struct(nc)
}

// UpdateScheduledCourse defines what may be changed on a scheduled course.
type UpdateScheduledCourse struct {
	Sections []int  `json:"sections" validate:"omitempty,min=1,dive,gt=0"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
}

func (uc *UpdateScheduledCourse) Validate(validate *validator.Validate) error {
	uc.Color = core.CleanString(uc.Color, true /* lower */)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if len(uc.Sections) == 0 && uc.Color == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "sections", Error: "nothing to update"})
	}
	return nil
}
