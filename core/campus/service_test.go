package campus

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	cachesvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/cache"
	"github.com/8ddieHu0314/Course-Mapper-sub000/testutil"
)

type fakeBuildings map[string]Location

func (b fakeBuildings) Lookup(name string) (Location, bool) {
	loc, ok := b[strings.ToLower(name)]
	return loc, ok
}

type fakeMaps struct {
	mu       sync.Mutex
	geocodes map[string]Location // by address
	walkSecs map[string]int      // by "from>to" location keys
	failDirs bool
	geoCalls int
	dirCalls int
}

func (m *fakeMaps) Geocode(_ context.Context, address string) (Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geoCalls++
	if loc, ok := m.geocodes[address]; ok {
		return loc, nil
	}
	return Location{}, ErrLocationNotFound
}

func (m *fakeMaps) WalkingDirections(_ context.Context, from, to Location) (Directions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirCalls++
	if m.failDirs {
		return Directions{}, core.NewUpstreamError("google maps", 0, "OVER_QUERY_LIMIT")
	}
	secs, ok := m.walkSecs[from.Key()+">"+to.Key()]
	if !ok {
		return Directions{}, ErrNoRoute
	}
	return Directions{DurationSeconds: secs, DistanceMeters: secs * 14 / 10}, nil
}

var (
	statler = Location{Lat: 42.44583, Lng: -76.48216}
	gates   = Location{Lat: 42.44495, Lng: -76.48131}
	warren  = Location{Lat: 42.44899, Lng: -76.47748}
	vet     = Location{Lat: 42.44740, Lng: -76.46580, FormattedAddress: "Vet School, Ithaca, NY"}
)

func newTestService(t *testing.T, maps *fakeMaps) *Service {
	store := cachesvc.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	conf := core.NewTestConfig()
	buildings := fakeBuildings{"statler hall": statler, "gates hall": gates, "warren hall": warren}
	return NewService(maps, buildings, cachesvc.New(store, testutil.NewLogger(t)), conf, testutil.NewLogger(t))
}

func TestService_Locate(t *testing.T) {
	maps := &fakeMaps{geocodes: map[string]Location{"Vet School, Cornell University, Ithaca, NY": vet}}
	svc := newTestService(t, maps)
	ctx := context.Background()

	loc, err := svc.Locate(ctx, "Statler Hall")
	require.NoError(t, err)
	assert.Equal(t, "gazetteer", loc.Source)
	assert.Equal(t, statler.Lat, loc.Lat)
	assert.Zero(t, maps.geoCalls)

	for i := 0; i < 2; i++ {
		loc, err = svc.Locate(ctx, " Vet School ")
		require.NoError(t, err)
		assert.Equal(t, "geocoder", loc.Source)
		assert.Equal(t, vet.FormattedAddress, loc.FormattedAddress)
	}
	assert.Equal(t, 1, maps.geoCalls, "geocodes are cached")

	_, err = svc.Locate(ctx, "Hogwarts")
	assert.ErrorIs(t, err, ErrLocationNotFound)

	_, err = svc.Locate(ctx, "  ")
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_Route(t *testing.T) {
	maps := &fakeMaps{walkSecs: map[string]int{statler.Key() + ">" + gates.Key(): 240}}
	svc := newTestService(t, maps)

	walk, err := svc.Route(context.Background(), "Statler Hall", "gates hall")
	require.NoError(t, err)
	assert.Equal(t, "Statler Hall", walk.From)
	assert.Equal(t, 4*time.Minute, walk.Duration)
	assert.Equal(t, 4.0, walk.Minutes)
	assert.False(t, walk.Estimated)
	assert.Len(t, walk.Path, 2, "straight path when no polyline was returned")

	// no route: estimated from the straight-line distance
	walk, err = svc.Route(context.Background(), "Gates Hall", "Warren Hall")
	require.NoError(t, err)
	assert.True(t, walk.Estimated)
	assert.InDelta(t, 650, walk.Meters, 150)
	assert.Greater(t, walk.Minutes, 5.0)

	_, err = svc.Route(context.Background(), "Gates Hall", "Hogwarts")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestService_EstimateWalk(t *testing.T) {
	svc := newTestService(t, &fakeMaps{})
	w := svc.EstimateWalk(statler, gates)
	assert.True(t, w.Estimated)
	// ~120m apart, 1.3 detour, 1.4 m/s
	assert.InDelta(t, 155, w.Meters, 20)
	assert.InDelta(t, 110, w.Duration.Seconds(), 20)
}

func mtg(label, building, pattern string, start, end catalog.Clock) ScheduledMeeting {
	return ScheduledMeeting{
		Label: label,
		Meeting: catalog.Meeting{
			Pattern:  pattern,
			Days:     catalog.ParsePattern(pattern),
			Start:    start,
			End:      end,
			Building: building,
		},
	}
}

func TestService_ValidateWalking(t *testing.T) {
	clock := catalog.NewClock
	maps := &fakeMaps{walkSecs: map[string]int{
		statler.Key() + ">" + warren.Key(): 12 * 60,
		warren.Key() + ">" + gates.Key():   11 * 60,
		statler.Key() + ">" + gates.Key():  3 * 60,
	}}
	svc := newTestService(t, maps)

	meetings := []ScheduledMeeting{
		mtg("CS 2110 LEC 001", "Statler Hall", "MWF", clock(10, 10), clock(11, 0)),
		mtg("AEM 2210 LEC 001", "Warren Hall", "MW", clock(11, 15), clock(12, 5)),  // 15 min gap, 12 min walk: ok
		mtg("CS 2800 LEC 001", "Gates Hall", "MW", clock(12, 15), clock(13, 5)),    // 10 min gap, 11 min walk: tight
		mtg("MATH 1920 LEC 001", "Malott Hall", "F", clock(10, 30), clock(11, 20)), // overlaps CS 2110 on Friday
		mtg("CS 2110 DIS 201", "Gates Hall", "T", clock(12, 20), clock(13, 10)),
		mtg("PE 1100 LEC 001", "", "T", clock(13, 15), clock(14, 0)), // unknown building: skipped
		mtg("CS 1110 IND 601", "", "TBA", 0, 0),
	}

	warnings, err := svc.ValidateWalking(context.Background(), meetings)
	require.NoError(t, err)

	type brief struct {
		kind, day, first, second string
	}
	got := make([]brief, len(warnings))
	for i, w := range warnings {
		got[i] = brief{w.Kind, w.DayName, w.First.Label, w.Second.Label}
	}
	assert.Equal(t, []brief{
		{WarningTight, "Monday", "AEM 2210 LEC 001", "CS 2800 LEC 001"},
		{WarningTight, "Wednesday", "AEM 2210 LEC 001", "CS 2800 LEC 001"},
		{WarningConflict, "Friday", "CS 2110 LEC 001", "MATH 1920 LEC 001"},
	}, got)

	assert.Equal(t, 10, warnings[0].GapMinutes)
	assert.Equal(t, 11.0, warnings[0].WalkMinutes)
	assert.Equal(t, 2, maps.dirCalls, "walks are computed once per building pair")
}

func TestService_ValidateWalking_bigGapsAndDates(t *testing.T) {
	clock := catalog.NewClock
	maps := &fakeMaps{failDirs: true}
	svc := newTestService(t, maps)

	firstHalf := mtg("PHYS 1112 LEC 001", "Statler Hall", "TR", clock(9, 5), clock(9, 55))
	firstHalf.StartDate = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	firstHalf.EndDate = time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	secondHalf := mtg("PHYS 1116 LEC 001", "Warren Hall", "TR", clock(9, 30), clock(10, 20))
	secondHalf.StartDate = time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)
	secondHalf.EndDate = time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	meetings := []ScheduledMeeting{
		firstHalf, secondHalf, // different halves of the term: no conflict
		mtg("HIST 1500 LEC 001", "Gates Hall", "TR", clock(13, 0), clock(13, 50)),
		mtg("ECON 1110 LEC 001", "Warren Hall", "TR", clock(15, 0), clock(15, 50)), // 70 min gap: not checked
	}
	warnings, err := svc.ValidateWalking(context.Background(), meetings)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Zero(t, maps.dirCalls)
}

func TestService_ValidateWalking_estimatedWhenDirectionsFail(t *testing.T) {
	clock := catalog.NewClock
	svc := newTestService(t, &fakeMaps{failDirs: true})

	warnings, err := svc.ValidateWalking(context.Background(), []ScheduledMeeting{
		mtg("A", "Statler Hall", "M", clock(9, 0), clock(9, 50)),
		mtg("B", "Warren Hall", "M", clock(9, 52), clock(10, 40)),
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningTight, warnings[0].Kind)
	assert.True(t, warnings[0].Estimated)
}
