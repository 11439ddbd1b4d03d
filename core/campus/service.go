package campus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

// detourFactor inflates straight-line distances to approximate walking paths.
const detourFactor = 1.3

type (
	// Maps geocodes addresses and computes walking directions (see services/maps).
	Maps interface {
		Geocode(ctx context.Context, address string) (Location, error)
		WalkingDirections(ctx context.Context, from, to Location) (Directions, error)
	}

	// Buildings is the local campus gazetteer (see storage/buildings).
	Buildings interface {
		Lookup(name string) (Location, bool)
	}

	Cache interface {
		Fetch(ctx context.Context, key string, ttl time.Duration, dst interface{}, fn func(ctx context.Context) (interface{}, error)) error
	}

	ServiceInterface interface {
		Locate(ctx context.Context, building string) (Location, error)
		Route(ctx context.Context, from, to string) (Walk, error)
		ValidateWalking(ctx context.Context, meetings []ScheduledMeeting) ([]Warning, error)
	}

	Service struct {
		maps      Maps
		buildings Buildings
		cache     Cache
		logger    core.Logger

		geocodeSuffix string
		geocodeTTL    time.Duration
		directionsTTL time.Duration
		maxGap        time.Duration
		walkingSpeed  float64 // m/s
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(maps Maps, buildings Buildings, cache Cache, conf *core.Config, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(maps, "maps"),
		vala.IsNotNil(buildings, "buildings"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	speed := conf.Campus.WalkingSpeed
	if speed <= 0 {
		speed = 1.4
	}
	return &Service{
		maps:          maps,
		buildings:     buildings,
		cache:         cache,
		logger:        logger,
		geocodeSuffix: conf.Maps.GeocodeSuffix,
		geocodeTTL:    conf.Maps.GeocodeTTL,
		directionsTTL: conf.Maps.DirectionsTTL,
		maxGap:        conf.Campus.MaxGapToCheck,
		walkingSpeed:  speed,
	}
}

// Locate resolves a building name through the gazetteer first, then the geocoder.
func (svc *Service) Locate(ctx context.Context, building string) (Location, error) {
	building = core.CleanString(building)
	if building == "" {
		return Location{}, core.NewValidationError(nil, core.FieldError{Field: "building", Error: "this field is required"})
	}
	if loc, ok := svc.buildings.Lookup(building); ok {
		loc.Source = "gazetteer"
		return loc, nil
	}

	var loc Location
	key := "cm:geocode:" + strings.ToLower(building)
	err := svc.cache.Fetch(ctx, key, svc.geocodeTTL, &loc, func(ctx context.Context) (interface{}, error) {
		l, err := svc.maps.Geocode(ctx, building+svc.geocodeSuffix)
		if err != nil {
			return nil, err
		}
		l.Source = "geocoder"
		return l, nil
	})
	if err != nil {
		return Location{}, errors.Wrapf(err, "locating %q", building)
	}
	return loc, nil
}

// Route returns the walking route between two buildings.
func (svc *Service) Route(ctx context.Context, from, to string) (Walk, error) {
	var fromLoc, toLoc Location
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fromLoc, err = svc.Locate(gctx, from)
		return err
	})
	g.Go(func() (err error) {
		toLoc, err = svc.Locate(gctx, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return Walk{}, err
	}

	walk, err := svc.walkBetween(ctx, fromLoc, toLoc)
	if err != nil {
		return Walk{}, err
	}
	walk.From, walk.To = core.CleanString(from), core.CleanString(to)
	return walk, nil
}

// EstimateWalk approximates a walk from the straight-line distance between two locations.
func (svc *Service) EstimateWalk(from, to Location) Walk {
	meters := geo.Distance(from.Point(), to.Point()) * detourFactor
	dur := time.Duration(meters / svc.walkingSpeed * float64(time.Second))
	return Walk{
		FromLoc:   from,
		ToLoc:     to,
		Duration:  dur,
		Minutes:   roundMinutes(dur),
		Meters:    meters,
		Path:      orb.LineString{from.Point(), to.Point()},
		Estimated: true,
	}
}

// walkBetween asks the directions API (cached per coordinate pair) and falls back to an estimate.
func (svc *Service) walkBetween(ctx context.Context, from, to Location) (Walk, error) {
	if from.Key() == to.Key() {
		return Walk{FromLoc: from, ToLoc: to, Path: orb.LineString{from.Point()}}, nil
	}

	var dirs Directions
	key := "cm:directions:" + from.Key() + ":" + to.Key()
	err := svc.cache.Fetch(ctx, key, svc.directionsTTL, &dirs, func(ctx context.Context) (interface{}, error) {
		return svc.maps.WalkingDirections(ctx, from, to)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Walk{}, ctx.Err()
		}
		svc.logger.Warn(fmt.Sprintf("walking directions failed, estimating: %v", err), err)
		return svc.EstimateWalk(from, to), nil
	}

	path := orb.LineString(dirs.Path)
	if len(path) == 0 {
		path = orb.LineString{from.Point(), to.Point()}
	}
	meters := float64(dirs.DistanceMeters)
	if meters == 0 {
		meters = geo.Length(path)
	}
	dur := time.Duration(dirs.DurationSeconds) * time.Second
	return Walk{
		FromLoc:  from,
		ToLoc:    to,
		Duration: dur,
		Minutes:  roundMinutes(dur),
		Meters:   meters,
		Path:     path,
	}, nil
}

func roundMinutes(d time.Duration) float64 {
	return float64(int(d.Minutes()*10+0.5)) / 10
}

// ScheduledMeeting is a meeting of one of the sections of a schedule.
type ScheduledMeeting struct {
	Label    string // eg. "CS 2110 LEC 001"
	CourseID string
	catalog.Meeting
}

type MeetingRef struct {
	Label    string        `json:"label"`
	CourseID string        `json:"courseId,omitempty"`
	Building string        `json:"building"`
	Start    catalog.Clock `json:"start"`
	End      catalog.Clock `json:"end"`
}

func (m ScheduledMeeting) ref() MeetingRef {
	return MeetingRef{Label: m.Label, CourseID: m.CourseID, Building: m.Building, Start: m.Start, End: m.End}
}

// ValidateWalking flags overlapping meetings and back-to-back meetings too far apart to walk between.
func (svc *Service) ValidateWalking(ctx context.Context, meetings []ScheduledMeeting) ([]Warning, error) {
	byDay := make(map[time.Weekday][]ScheduledMeeting, 7)
	for _, m := range meetings {
		if !m.IsScheduled() {
			continue
		}
		for _, d := range m.Days {
			byDay[d] = append(byDay[d], m)
		}
	}

	type pair struct {
		day           time.Weekday
		first, second ScheduledMeeting
		gap           time.Duration
	}
	warnings := make([]Warning, 0)
	toCheck := make([]pair, 0)
	for day, mtgs := range byDay {
		sort.SliceStable(mtgs, func(i, j int) bool {
			if mtgs[i].Start != mtgs[j].Start {
				return mtgs[i].Start < mtgs[j].Start
			}
			return mtgs[i].End < mtgs[j].End
		})
		for i := 0; i+1 < len(mtgs); i++ {
			first, second := mtgs[i], mtgs[i+1]
			if !first.DatesOverlap(second.Meeting) {
				continue
			}
			if second.Start < first.End {
				warnings = append(warnings, Warning{
					Kind:    WarningConflict,
					Day:     day,
					First:   first.ref(),
					Second:  second.ref(),
					Message: fmt.Sprintf("%s overlaps %s on %s", first.Label, second.Label, day),
				})
				continue
			}
			gap := second.Start.Sub(first.End)
			if sameBuilding(first.Building, second.Building) || gap >= svc.maxGap {
				continue
			}
			toCheck = append(toCheck, pair{day: day, first: first, second: second, gap: gap})
		}
	}

	// locate every building once, concurrently
	locs := make(map[string]Location)
	names := make(map[string]string) // lower -> original
	for _, p := range toCheck {
		names[strings.ToLower(p.first.Building)] = p.first.Building
		names[strings.ToLower(p.second.Building)] = p.second.Building
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for lower, name := range names {
		lower, name := lower, name
		g.Go(func() error {
			loc, err := svc.Locate(gctx, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				svc.logger.Info(fmt.Sprintf("skipping walk checks for %q: %v", name, err))
				return nil
			}
			mu.Lock()
			locs[lower] = loc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "locating buildings")
	}

	// one walk per distinct building pair
	walks := make(map[[2]string]Walk)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range toCheck {
		k := [2]string{strings.ToLower(p.first.Building), strings.ToLower(p.second.Building)}
		from, okFrom := locs[k[0]]
		to, okTo := locs[k[1]]
		if !okFrom || !okTo {
			continue
		}
		mu.Lock()
		_, seen := walks[k]
		if !seen {
			walks[k] = Walk{} // reserved
		}
		mu.Unlock()
		if seen {
			continue
		}
		g.Go(func() error {
			w, err := svc.walkBetween(gctx, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			walks[k] = w
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "computing walks")
	}

	for _, p := range toCheck {
		w, ok := walks[[2]string{strings.ToLower(p.first.Building), strings.ToLower(p.second.Building)}]
		if !ok || w.Duration <= p.gap {
			continue
		}
		warnings = append(warnings, Warning{
			Kind:        WarningTight,
			Day:         p.day,
			First:       p.first.ref(),
			Second:      p.second.ref(),
			GapMinutes:  int(p.gap.Minutes()),
			WalkMinutes: w.Minutes,
			Estimated:   w.Estimated,
			Message: fmt.Sprintf("%d min between %s and %s but the walk from %s to %s takes about %.0f min",
				int(p.gap.Minutes()), p.first.Label, p.second.Label, p.first.Building, p.second.Building, w.Minutes),
		})
	}

	for i := range warnings {
		warnings[i].DayName = warnings[i].Day.String()
	}
	sort.SliceStable(warnings, func(i, j int) bool {
		di, dj := weekdayIndex(warnings[i].Day), weekdayIndex(warnings[j].Day)
		if di != dj {
			return di < dj
		}
		if warnings[i].First.Start != warnings[j].First.Start {
			return warnings[i].First.Start < warnings[j].First.Start
		}
		return warnings[i].Second.Start < warnings[j].Second.Start
	})
	return warnings, nil
}

// sameBuilding also reports true when a building is unknown, as nothing can be checked then.
func sameBuilding(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a == "" || b == "" || strings.EqualFold(a, b)
}

// weekdayIndex orders weeks Monday first.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
