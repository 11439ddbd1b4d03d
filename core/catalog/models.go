package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

type Roster struct {
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsDefault   bool   `json:"isDefault"`
}

type Subject struct {
	Value string `json:"value"`
	Descr string `json:"descr"`
}

type Instructor struct {
	NetID     string `json:"netid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (i Instructor) Name() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

type Meeting struct {
	Pattern     string         `json:"pattern"`
	Days        []time.Weekday `json:"days"`
	Start       Clock          `json:"start"`
	End         Clock          `json:"end"`
	Building    string         `json:"building"`
	Facility    string         `json:"facility"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Instructors []Instructor   `json:"instructors,omitempty"`
}

// IsScheduled reports whether the meeting has days and a time range (ie. not TBA).
func (m Meeting) IsScheduled() bool {
	return len(m.Days) > 0 && m.End > m.Start
}

func (m Meeting) MeetsOn(day time.Weekday) bool {
	for _, d := range m.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DatesOverlap reports whether both meetings run during a common date. Unknown dates overlap everything.
func (m Meeting) DatesOverlap(o Meeting) bool {
	if m.StartDate.IsZero() || m.EndDate.IsZero() || o.StartDate.IsZero() || o.EndDate.IsZero() {
		return true
	}
	return !m.EndDate.Before(o.StartDate) && !o.EndDate.Before(m.StartDate)
}

// Location returns the most precise place name known for the meeting.
func (m Meeting) Location() string {
	if m.Facility != "" {
		return m.Facility
	}
	return m.Building
}

type ClassSection struct {
	ClassNbr   int       `json:"classNbr"`
	Component  string    `json:"component"` // LEC, DIS, LAB...
	Section    string    `json:"section"`
	OpenStatus string    `json:"openStatus"` // O(pen), C(losed), W(aitlist)
	Meetings   []Meeting `json:"meetings"`
}

type EnrollGroup struct {
	Index        int            `json:"index"`
	UnitsMin     float64        `json:"unitsMin"`
	UnitsMax     float64        `json:"unitsMax"`
	GradingBasis string         `json:"gradingBasis"`
	Sections     []ClassSection `json:"sections"`
}

// Components returns the distinct section components of the group, in catalog order.
func (g EnrollGroup) Components() []string {
	comps := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, s := range g.Sections {
		if !seen[s.Component] {
			seen[s.Component] = true
			comps = append(comps, s.Component)
		}
	}
	return comps
}

func (g EnrollGroup) Section(classNbr int) (ClassSection, bool) {
	for _, s := range g.Sections {
		if s.ClassNbr == classNbr {
			return s, true
		}
	}
	return ClassSection{}, false
}

type Course struct {
	ID           int           `json:"id"`
	OfferNumber  int           `json:"offerNumber"`
	Roster       string        `json:"roster"`
	Subject      string        `json:"subject"`
	CatalogNbr   string        `json:"catalogNbr"`
	TitleShort   string        `json:"titleShort"`
	TitleLong    string        `json:"titleLong"`
	Description  string        `json:"description"`
	EnrollGroups []EnrollGroup `json:"enrollGroups"`
}

// Code returns the display code, eg. "CS 2110".
func (c Course) Code() string {
	return c.Subject + " " + c.CatalogNbr
}

func (c Course) Title() string {
	if c.TitleLong != "" {
		return c.TitleLong
	}
	return c.TitleShort
}

// Level returns the course level (1000, 2000...) derived from its catalog number.
func (c Course) Level() int {
	n, err := strconv.Atoi(c.CatalogNbr)
	if err != nil {
		return 0
	}
	return n / 1000 * 1000
}

func (c Course) EnrollGroup(index int) (EnrollGroup, bool) {
	if index < 0 || index >= len(c.EnrollGroups) {
		return EnrollGroup{}, false
	}
	return c.EnrollGroups[index], true
}

// SearchQuery filters the courses of one subject in one roster.
type SearchQuery struct {
	Roster  string `query:"roster" validate:"required,roster"`
	Subject string `query:"subject" validate:"required,subject"`
	Query   string `query:"q" validate:"max=100"`
	Levels  []int  `query:"level" validate:"dive,oneof=1000 2000 3000 4000 5000 6000 7000 8000 9000"`
	Limit   int    `query:"limit" validate:"min=0,max=500"`
}

func (sq *SearchQuery) Validate(validate *validator.Validate) error {
	sq.Roster = core.CleanUpper(sq.Roster)
	sq.Subject = core.CleanUpper(sq.Subject)
	sq.Query = core.CleanString(sq.Query)
	return validate.Struct(sq)
}

func (sq SearchQuery) hasLevel(level int) bool {
	if len(sq.Levels) == 0 {
		return true
	}
	for _, l := range sq.Levels {
		if l == level {
			return true
		}
	}
	return false
}
