package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

// bindSearchQuery reads the course search filters from the query string.
// `level` may be repeated or comma separated.
func bindSearchQuery(ctx echo.Context) (catalog.SearchQuery, error) {
	data := ctx.QueryParams()
	q := catalog.SearchQuery{
		Roster:  data.Get("roster"),
		Subject: data.Get("subject"),
		Query:   data.Get("q"),
	}

	for _, val := range data["level"] {
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			level, err := strconv.Atoi(s)
			if err != nil {
				return q, core.NewValidationError(nil, core.FieldError{Field: "level", Error: "level must be a number like 2000"})
			}
			q.Levels = append(q.Levels, level)
		}
	}

	if s := data.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			return q, core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "limit must be a number"})
		}
		q.Limit = limit
	}
	return q, nil
}

// bindCalendarOptions reads `start`, `end` (eg. 8:00AM or 20:00) and `weekend` from the query string.
func bindCalendarOptions(ctx echo.Context) (schedule.CalendarOptions, error) {
	var opts schedule.CalendarOptions
	data := ctx.QueryParams()
	if len(data) == 0 {
		return opts, nil
	}

	for _, fld := range []struct {
		name string
		dst  *catalog.Clock
	}{{"start", &opts.DayStart}, {"end", &opts.DayEnd}} {
		val := data.Get(fld.name)
		if val == "" {
			continue
		}
		clock, err := catalog.ParseClock(val)
		if err != nil {
			return opts, core.NewValidationError(nil, core.FieldError{Field: fld.name, Error: fld.name + " must be a time of day like 8:00AM"})
		}
		*fld.dst = clock
	}

	if val := data.Get("weekend"); val != "" {
		weekend, err := strconv.ParseBool(val)
		if err != nil {
			return opts, core.NewValidationError(nil, core.FieldError{Field: "weekend", Error: "weekend must be true or false"})
		}
		opts.Weekend = weekend
	}
	return opts, nil
}
