package catalog

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	pkgerrors "github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrRosterNotFound = errors.New("roster not found")
)

type (
	// Source is the upstream course catalog (see services/cornell).
	Source interface {
		Rosters(ctx context.Context) ([]Roster, error)
		Subjects(ctx context.Context, roster string) ([]Subject, error)
		// Search returns the courses of `subject`, filtered upstream by `q` and `levels` when given.
		Search(ctx context.Context, roster, subject, q string, levels []int) ([]Course, error)
	}

	// Cache JSON-caches fn's result under key (see services/cache).
	Cache interface {
		Fetch(ctx context.Context, key string, ttl time.Duration, dst interface{}, fn func(ctx context.Context) (interface{}, error)) error
	}

	ServiceInterface interface {
		Rosters(ctx context.Context) ([]Roster, error)
		Subjects(ctx context.Context, roster string) ([]Subject, error)
		Search(ctx context.Context, q SearchQuery) ([]Course, error)
		GetCourse(ctx context.Context, roster, subject, catalogNbr string) (Course, error)
	}

	Service struct {
		src      Source
		cache    Cache
		conf     core.CatalogConfig
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(src Source, cache Cache, conf *core.Config, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(src, "src"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{src: src, cache: cache, conf: conf.Catalog, validate: validate}
}

func cacheKey(parts ...string) string {
	return "cm:catalog:" + strings.Join(parts, ":")
}

func (svc *Service) Rosters(ctx context.Context) ([]Roster, error) {
	var rosters []Roster
	err := svc.cache.Fetch(ctx, cacheKey("rosters"), svc.conf.RostersTTL, &rosters, func(ctx context.Context) (interface{}, error) {
		return svc.src.Rosters(ctx)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching rosters")
	}
	return rosters, nil
}

func (svc *Service) checkRoster(roster string) error {
	if !core.IsRoster(roster) {
		return core.NewValidationError(nil, core.FieldError{Field: "roster", Error: "roster must be a roster slug like SP26"})
	}
	return nil
}

func (svc *Service) Subjects(ctx context.Context, roster string) ([]Subject, error) {
	roster = core.CleanUpper(roster)
	if err := svc.checkRoster(roster); err != nil {
		return nil, err
	}

	var subjects []Subject
	err := svc.cache.Fetch(ctx, cacheKey("subjects", roster), svc.conf.SubjectsTTL, &subjects, func(ctx context.Context) (interface{}, error) {
		return svc.src.Subjects(ctx, roster)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching subjects")
	}
	return subjects, nil
}

func levelsKey(levels []int) string {
	if len(levels) == 0 {
		return "all"
	}
	sorted := append([]int(nil), levels...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, l := range sorted {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ",")
}

// Search returns the subject's courses matching q.
// With a text query they are ranked by title similarity, otherwise ordered by catalog number.
func (svc *Service) Search(ctx context.Context, q SearchQuery) ([]Course, error) {
	if err := q.Validate(svc.validate); err != nil {
		return nil, err
	}

	var courses []Course
	key := cacheKey("search", q.Roster, q.Subject, strings.ToLower(q.Query), levelsKey(q.Levels))
	err := svc.cache.Fetch(ctx, key, svc.conf.SearchTTL, &courses, func(ctx context.Context) (interface{}, error) {
		return svc.src.Search(ctx, q.Roster, q.Subject, q.Query, q.Levels)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "searching courses")
	}

	filtered := courses[:0]
	for _, c := range courses {
		if q.hasLevel(c.Level()) {
			filtered = append(filtered, c)
		}
	}
	courses = filtered

	rank(courses, q.Query)
	if q.Limit > 0 && len(courses) > q.Limit {
		courses = courses[:q.Limit]
	}
	if courses == nil {
		courses = []Course{}
	}
	return courses, nil
}

func (svc *Service) GetCourse(ctx context.Context, roster, subject, catalogNbr string) (Course, error) {
	q := SearchQuery{Roster: roster, Subject: subject}
	if err := q.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	catalogNbr = core.CleanString(catalogNbr)

	courses, err := svc.Search(ctx, q)
	if err != nil {
		return Course{}, err
	}
	for _, c := range courses {
		if c.CatalogNbr == catalogNbr {
			return c, nil
		}
	}
	return Course{}, ErrNotFound
}

// rank orders courses in place.
func rank(courses []Course, query string) {
	query = strings.ToLower(query)
	if query == "" {
		sort.SliceStable(courses, func(i, j int) bool {
			if courses[i].CatalogNbr != courses[j].CatalogNbr {
				return courses[i].CatalogNbr < courses[j].CatalogNbr
			}
			return courses[i].ID < courses[j].ID
		})
		return
	}

	scores := make(map[int]float64, len(courses))
	for i, c := range courses {
		scores[i] = similarity(query, c)
	}
	idx := make([]int, len(courses))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := scores[idx[a]], scores[idx[b]]
		if sa != sb {
			return sa > sb
		}
		return courses[idx[a]].CatalogNbr < courses[idx[b]].CatalogNbr
	})
	ranked := make([]Course, len(courses))
	for i, j := range idx {
		ranked[i] = courses[j]
	}
	copy(courses, ranked)
}

// similarity scores how well query matches the course code or titles, in [0, 1].
// An exact catalog number or code match always ranks first.
func similarity(query string, c Course) float64 {
	code := strings.ToLower(c.Code())
	if query == strings.ToLower(c.CatalogNbr) || query == code || query == strings.ReplaceAll(code, " ", "") {
		return 2
	}

	var best float64
	for _, attr := range []string{c.TitleShort, c.TitleLong} {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		sm := difflib.NewMatcher(strings.Split(query, ""), strings.Split(attr, ""))
		ratio := sm.Ratio()
		if strings.Contains(attr, query) {
			ratio += 1
		}
		if ratio > best {
			best = ratio
		}
	}
	return best
}
