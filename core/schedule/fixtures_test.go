package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	emailsvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/email"
	"github.com/8ddieHu0314/Course-Mapper-sub000/testutil"
)

type fakeRepo struct {
	mu     sync.Mutex
	scheds map[string]Schedule
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{scheds: make(map[string]Schedule)}
}

func (r *fakeRepo) GetSchedule(_ context.Context, userID, roster string) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scheds[userID+"/"+roster]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) ListSchedules(_ context.Context, userID string) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scheds := make([]Schedule, 0)
	for _, s := range r.scheds {
		if s.UserID == userID {
			scheds = append(scheds, s)
		}
	}
	return scheds, nil
}

func (r *fakeRepo) SaveSchedule(_ context.Context, s Schedule) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheds[s.UserID+"/"+s.Roster] = s
	return s, nil
}

func (r *fakeRepo) DeleteSchedule(_ context.Context, userID, roster string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scheds[userID+"/"+roster]; !ok {
		return ErrNotFound
	}
	delete(r.scheds, userID+"/"+roster)
	return nil
}

type fakeCatalog map[string]catalog.Course // by "SUBJ NBR"

func (c fakeCatalog) GetCourse(_ context.Context, _, subject, catalogNbr string) (catalog.Course, error) {
	course, ok := c[subject+" "+catalogNbr]
	if !ok {
		return catalog.Course{}, catalog.ErrNotFound
	}
	return course, nil
}

type fakeWalker struct {
	got []campus.ScheduledMeeting
}

func (w *fakeWalker) ValidateWalking(_ context.Context, meetings []campus.ScheduledMeeting) ([]campus.Warning, error) {
	w.got = meetings
	return []campus.Warning{{Kind: campus.WarningTight, Day: time.Monday}}, nil
}

var (
	termStart = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC) // a Tuesday
	termEnd   = time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
)

func meeting(pattern, building string, start, end catalog.Clock) catalog.Meeting {
	return catalog.Meeting{
		Pattern:   pattern,
		Days:      catalog.ParsePattern(pattern),
		Start:     start,
		End:       end,
		Building:  building,
		Facility:  building,
		StartDate: termStart,
		EndDate:   termEnd,
	}
}

func testCatalog() fakeCatalog {
	clock := catalog.NewClock
	return fakeCatalog{
		"CS 2110": {
			ID:         358546,
			Roster:     "SP26",
			Subject:    "CS",
			CatalogNbr: "2110",
			TitleLong:  "Object-Oriented Programming and Data Structures",
			EnrollGroups: []catalog.EnrollGroup{{
				UnitsMin: 3,
				UnitsMax: 3,
				Sections: []catalog.ClassSection{
					{ClassNbr: 10001, Component: "LEC", Section: "001", Meetings: []catalog.Meeting{
						meeting("MWF", "Statler Hall", clock(10, 10), clock(11, 0)),
					}},
					{ClassNbr: 10002, Component: "DIS", Section: "201", Meetings: []catalog.Meeting{
						meeting("T", "Gates Hall", clock(12, 20), clock(13, 10)),
					}},
					{ClassNbr: 10003, Component: "DIS", Section: "202", Meetings: []catalog.Meeting{
						meeting("W", "Gates Hall", clock(11, 15), clock(12, 5)),
					}},
				},
			}},
		},
		"CS 1110": {
			ID:         358000,
			Roster:     "SP26",
			Subject:    "CS",
			CatalogNbr: "1110",
			TitleShort: "Intro Computing Using Python",
			EnrollGroups: []catalog.EnrollGroup{{
				UnitsMin: 4,
				UnitsMax: 4,
				Sections: []catalog.ClassSection{
					{ClassNbr: 20001, Component: "LEC", Section: "001", Meetings: []catalog.Meeting{
						meeting("TR", "Uris Hall", clock(9, 5), clock(9, 55)),
					}},
					{ClassNbr: 20002, Component: "IND", Section: "601", Meetings: []catalog.Meeting{
						{Pattern: "TBA"},
					}},
				},
			}},
		},
	}
}

type testEnv struct {
	svc    *Service
	repo   *fakeRepo
	walker *fakeWalker
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	validate, _ := core.NewValidator()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	env := &testEnv{
		repo:   newFakeRepo(),
		walker: &fakeWalker{},
		now:    time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.repo, testCatalog(), env.walker, emailsvc.NewConsoleServiceMock(conf, logger), validate, conf, logger)
	env.svc.now = func() time.Time {
		env.now = env.now.Add(time.Minute)
		return env.now
	}
	return env
}

func (env *testEnv) add(t *testing.T, user, roster string, nc NewScheduledCourse) Schedule {
	t.Helper()
	sched, err := env.svc.AddCourse(context.Background(), user, roster, nc)
	if err != nil {
		t.Fatalf("AddCourse(%s %s): %v", nc.Subject, nc.CatalogNbr, err)
	}
	return sched
}

var (
	cs2110 = NewScheduledCourse{Subject: "CS", CatalogNbr: "2110", Sections: []int{10002, 10001}}
	cs1110 = NewScheduledCourse{Subject: "cs", CatalogNbr: "1110", Sections: []int{20001, 20002}}
)
