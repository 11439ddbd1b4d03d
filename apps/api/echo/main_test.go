package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/8ddieHu0314/Course-Mapper-sub000/apps/api/echo"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
	cachesvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/cache"
	emailsvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/email"
	"github.com/8ddieHu0314/Course-Mapper-sub000/storage/buildings"
	inmemdb "github.com/8ddieHu0314/Course-Mapper-sub000/storage/database/inmem"
	"github.com/8ddieHu0314/Course-Mapper-sub000/testutil"
)

var (
	conf *core.Config
	app  *Server

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = core.NewTestConfig()
	logger := testutil.NewLogger(nil)
	validate, translator := core.NewValidator()
	core.ParseEmailTemplates(conf, logger)

	// set up storage & caches
	store := cachesvc.NewMemoryStore(0)
	cache := cachesvc.New(store, logger)
	gazetteer, err := buildings.Load("", logger)
	if err != nil {
		panic(err)
	}
	scheduleRepo := inmemdb.NewScheduleRepository(inmemdb.Open())

	// set up services
	catalogSvc := catalog.NewService(newFakeSource(), cache, conf, validate)
	campusSvc := campus.NewService(fakeMaps{}, gazetteer, cache, conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	scheduleSvc := schedule.NewService(scheduleRepo, catalogSvc, campusSvc, mailSvc, validate, conf, logger)

	// set up server
	app = NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		CatalogSvc:  catalogSvc,
		CampusSvc:   campusSvc,
		ScheduleSvc: scheduleSvc,
		Validate:    validate,
		Translator:  translator,
	})

	// run tests
	code := m.Run()

	// clean up
	_ = store.Close()
	os.Exit(code)
}

// Fakes

var (
	termStart = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
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

func course(id int, nbr, title string, units float64, sections ...catalog.ClassSection) catalog.Course {
	return catalog.Course{
		ID:           id,
		Roster:       "SP26",
		Subject:      "CS",
		CatalogNbr:   nbr,
		TitleLong:    title,
		EnrollGroups: []catalog.EnrollGroup{{UnitsMin: units, UnitsMax: units, Sections: sections}},
	}
}

type fakeSource struct {
	rosters  []catalog.Roster
	subjects []catalog.Subject
	courses  []catalog.Course
}

func newFakeSource() *fakeSource {
	clock := catalog.NewClock
	return &fakeSource{
		rosters: []catalog.Roster{
			{Slug: "FA25", Description: "Fall 2025"},
			{Slug: "SP26", Description: "Spring 2026", IsDefault: true},
		},
		subjects: []catalog.Subject{
			{Value: "CS", Descr: "Computer Science"},
			{Value: "MATH", Descr: "Mathematics"},
		},
		courses: []catalog.Course{
			course(358546, "2110", "Object-Oriented Programming and Data Structures", 3,
				catalog.ClassSection{ClassNbr: 10001, Component: "LEC", Section: "001", Meetings: []catalog.Meeting{
					meeting("MWF", "Statler Hall", clock(10, 10), clock(11, 0)),
				}},
				catalog.ClassSection{ClassNbr: 10003, Component: "DIS", Section: "202", Meetings: []catalog.Meeting{
					meeting("W", "Gates Hall", clock(11, 15), clock(12, 5)),
				}},
			),
			course(358000, "1110", "Introduction to Computing Using Python", 4,
				catalog.ClassSection{ClassNbr: 20001, Component: "LEC", Section: "001", Meetings: []catalog.Meeting{
					meeting("TR", "Uris Hall", clock(9, 5), clock(9, 55)),
				}},
			),
			course(359100, "4820", "Introduction to Analysis of Algorithms", 4,
				catalog.ClassSection{ClassNbr: 30001, Component: "LEC", Section: "001", Meetings: []catalog.Meeting{
					meeting("MWF", "Olin Hall", clock(13, 25), clock(14, 15)),
				}},
			),
		},
	}
}

func (s *fakeSource) Rosters(context.Context) ([]catalog.Roster, error) {
	return s.rosters, nil
}

func (s *fakeSource) Subjects(_ context.Context, roster string) ([]catalog.Subject, error) {
	if roster != "SP26" && roster != "FA25" {
		return nil, catalog.ErrRosterNotFound
	}
	return s.subjects, nil
}

func (s *fakeSource) Search(_ context.Context, roster, subject, _ string, _ []int) ([]catalog.Course, error) {
	switch {
	case subject == "DOWN":
		return nil, core.NewUpstreamError("class roster", http.StatusServiceUnavailable, "Service Unavailable")
	case roster != "SP26" || subject != "CS":
		return []catalog.Course{}, nil
	}
	return append([]catalog.Course(nil), s.courses...), nil
}

// fakeMaps knows no address and walks everything in 20 minutes.
type fakeMaps struct{}

func (fakeMaps) Geocode(context.Context, string) (campus.Location, error) {
	return campus.Location{}, campus.ErrLocationNotFound
}

func (fakeMaps) WalkingDirections(context.Context, campus.Location, campus.Location) (campus.Directions, error) {
	return campus.Directions{DurationSeconds: 1200, DistanceMeters: 1500}, nil
}

// Helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    func(t *testing.T, rec *httptest.ResponseRecorder)
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, sub string) string {
	claims := NewClaims(conf, sub, strings.ToLower(sub)+"@cornell.edu", time.Hour)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	if tt.extra != nil {
		tt.extra(t, rec)
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
