package cornell

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

// envelope wraps every Class Roster API response.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type rostersData struct {
	Rosters []struct {
		Slug      string `json:"slug"`
		Descr     string `json:"descr"`
		IsDefault bool   `json:"isDefaultRoster"`
	} `json:"rosters"`
}

type subjectsData struct {
	Subjects []struct {
		Value       string `json:"value"`
		Descr       string `json:"descr"`
		DescrFormal string `json:"descrformal"`
	} `json:"subjects"`
}

type classesData struct {
	Classes []class `json:"classes"`
}

type class struct {
	StrmID       int           `json:"strm"`
	CrseID       int           `json:"crseId"`
	CrseOfferNbr int           `json:"crseOfferNbr"`
	Subject      string        `json:"subject"`
	CatalogNbr   string        `json:"catalogNbr"`
	TitleShort   string        `json:"titleShort"`
	TitleLong    string        `json:"titleLong"`
	Description  string        `json:"description"`
	EnrollGroups []enrollGroup `json:"enrollGroups"`
}

type enrollGroup struct {
	UnitsMinimum  float64        `json:"unitsMinimum"`
	UnitsMaximum  float64        `json:"unitsMaximum"`
	GradingBasis  string         `json:"gradingBasis"`
	ClassSections []classSection `json:"classSections"`
}

type classSection struct {
	SsrComponent string    `json:"ssrComponent"`
	Section      string    `json:"section"`
	ClassNbr     int       `json:"classNbr"`
	OpenStatus   string    `json:"openStatus"`
	Meetings     []meeting `json:"meetings"`
}

type meeting struct {
	TimeStart     string       `json:"timeStart"`
	TimeEnd       string       `json:"timeEnd"`
	Pattern       string       `json:"pattern"`
	BldgDescr     string       `json:"bldgDescr"`
	FacilityDescr string       `json:"facilityDescr"`
	StartDt       string       `json:"startDt"`
	EndDt         string       `json:"endDt"`
	Instructors   []instructor `json:"instructors"`
}

type instructor struct {
	NetID     string `json:"netid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (c class) toCourse(roster string) (catalog.Course, error) {
	course := catalog.Course{
		ID:           c.CrseID,
		OfferNumber:  c.CrseOfferNbr,
		Roster:       roster,
		Subject:      c.Subject,
		CatalogNbr:   c.CatalogNbr,
		TitleShort:   c.TitleShort,
		TitleLong:    c.TitleLong,
		Description:  c.Description,
		EnrollGroups: make([]catalog.EnrollGroup, 0, len(c.EnrollGroups)),
	}
	for i, eg := range c.EnrollGroups {
		group := catalog.EnrollGroup{
			Index:        i,
			UnitsMin:     eg.UnitsMinimum,
			UnitsMax:     eg.UnitsMaximum,
			GradingBasis: eg.GradingBasis,
			Sections:     make([]catalog.ClassSection, 0, len(eg.ClassSections)),
		}
		for _, cs := range eg.ClassSections {
			section := catalog.ClassSection{
				ClassNbr:   cs.ClassNbr,
				Component:  cs.SsrComponent,
				Section:    cs.Section,
				OpenStatus: cs.OpenStatus,
				Meetings:   make([]catalog.Meeting, 0, len(cs.Meetings)),
			}
			for _, m := range cs.Meetings {
				mtg, err := m.toMeeting()
				if err != nil {
					return catalog.Course{}, errors.Wrapf(err, "%s %s section %s", c.Subject, c.CatalogNbr, cs.Section)
				}
				section.Meetings = append(section.Meetings, mtg)
			}
			group.Sections = append(group.Sections, section)
		}
		course.EnrollGroups = append(course.EnrollGroups, group)
	}
	return course, nil
}

func (m meeting) toMeeting() (catalog.Meeting, error) {
	mtg := catalog.Meeting{
		Pattern:  m.Pattern,
		Days:     catalog.ParsePattern(m.Pattern),
		Building: m.BldgDescr,
		Facility: m.FacilityDescr,
	}
	var err error
	if m.TimeStart != "" && m.TimeEnd != "" {
		if mtg.Start, err = catalog.ParseClock(m.TimeStart); err != nil {
			return mtg, err
		}
		if mtg.End, err = catalog.ParseClock(m.TimeEnd); err != nil {
			return mtg, err
		}
	}
	if mtg.StartDate, err = catalog.ParseDate(m.StartDt); err != nil {
		return mtg, err
	}
	if mtg.EndDate, err = catalog.ParseDate(m.EndDt); err != nil {
		return mtg, err
	}
	for _, in := range m.Instructors {
		mtg.Instructors = append(mtg.Instructors, catalog.Instructor{NetID: in.NetID, FirstName: in.FirstName, LastName: in.LastName})
	}
	return mtg, nil
}
