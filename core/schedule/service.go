package schedule

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

type (
	Repository interface {
		// GetSchedule returns ErrNotFound when the user has no schedule for roster.
		GetSchedule(ctx context.Context, userID, roster string) (Schedule, error)
		ListSchedules(ctx context.Context, userID string) ([]Schedule, error)
		// SaveSchedule inserts or replaces the schedule of (UserID, Roster).
		SaveSchedule(ctx context.Context, sched Schedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, userID, roster string) error
	}

	// Catalog looks up the courses being scheduled (see core/catalog).
	Catalog interface {
		GetCourse(ctx context.Context, roster, subject, catalogNbr string) (catalog.Course, error)
	}

	// Walker checks the walks between meetings (see core/campus).
	Walker interface {
		ValidateWalking(ctx context.Context, meetings []campus.ScheduledMeeting) ([]campus.Warning, error)
	}

	ServiceInterface interface {
		Get(ctx context.Context, userID, roster string) (Schedule, error)
		List(ctx context.Context, userID string) ([]Summary, error)
		AddCourse(ctx context.Context, userID, roster string, nc NewScheduledCourse) (Schedule, error)
		UpdateCourse(ctx context.Context, userID, roster, id string, uc UpdateScheduledCourse) (Schedule, error)
		RemoveCourse(ctx context.Context, userID, roster, id string) (Schedule, error)
		Clear(ctx context.Context, userID, roster string) error
		Calendar(ctx context.Context, userID, roster string, opts CalendarOptions) (Calendar, error)
		Validate(ctx context.Context, userID, roster string) ([]campus.Warning, error)
		ExportICS(ctx context.Context, userID, roster string, w io.Writer) error
		Share(ctx context.Context, caller core.Caller, roster, to string) error
	}

	Service struct {
		repo     Repository
		catalog  Catalog
		walker   Walker
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
		loc      *time.Location
		appName  string
		now      func() time.Time

		locks sync.Map // "user:roster" -> *sync.Mutex
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	cat Catalog,
	walker Walker,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cat, "cat"),
		vala.IsNotNil(walker, "walker"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	loc, err := time.LoadLocation(conf.Campus.Timezone)
	if err != nil {
		logger.Error(fmt.Sprintf("loading timezone %q, falling back to %s: %v", conf.Campus.Timezone, defaultTimezone, err), err)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		walker:   walker,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
		loc:      loc,
		appName:  conf.AppName,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) lock(userID, roster string) func() {
	mu, _ := svc.locks.LoadOrStore(userID+":"+roster, new(sync.Mutex))
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

func checkKeys(userID, roster string) (string, error) {
	if userID == "" {
		return "", errors.New("missing user id")
	}
	roster = core.CleanUpper(roster)
	if !core.IsRoster(roster) {
		return "", core.NewValidationError(nil, core.FieldError{Field: "roster", Error: "roster must be a roster slug like SP26"})
	}
	return roster, nil
}

// load returns the stored schedule, or a new empty one.
func (svc *Service) load(ctx context.Context, userID, roster string) (Schedule, error) {
	sched, err := svc.repo.GetSchedule(ctx, userID, roster)
	if err == nil {
		if sched.Courses == nil {
			sched.Courses = []ScheduledCourse{}
		}
		return sched, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Schedule{}, errors.Wrap(err, "loading schedule")
	}
	return Schedule{UserID: userID, Roster: roster, Courses: []ScheduledCourse{}}, nil
}

func (svc *Service) save(ctx context.Context, sched Schedule) (Schedule, error) {
	now := svc.now()
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = now
	}
	sched.UpdatedAt = now
	saved, err := svc.repo.SaveSchedule(ctx, sched)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "saving schedule")
	}
	return saved, nil
}

// Get returns the user's schedule for roster. A schedule never saved is returned empty.
func (svc *Service) Get(ctx context.Context, userID, roster string) (Schedule, error) {
	roster, err := checkKeys(userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	return svc.load(ctx, userID, roster)
}

// List returns the summaries of the user's schedules, most recently updated first.
func (svc *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	if userID == "" {
		return nil, errors.New("missing user id")
	}
	scheds, err := svc.repo.ListSchedules(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing schedules")
	}
	return summaries(scheds), nil
}

// pickSections checks the selected class numbers against the course's enroll group:
// exactly one section per component of the group.
func pickSections(course catalog.Course, groupIdx int, classNbrs []int) ([]SelectedSection, catalog.EnrollGroup, error) {
	group, ok := course.EnrollGroup(groupIdx)
	if !ok {
		return nil, group, core.NewValidationError(nil, core.FieldError{
			Field: "enrollGroup",
			Error: fmt.Sprintf("%s has no enroll group %d", course.Code(), groupIdx),
		})
	}

	byComp := make(map[string]catalog.ClassSection, len(classNbrs))
	for _, nbr := range classNbrs {
		sec, ok := group.Section(nbr)
		if !ok {
			return nil, group, core.NewValidationError(nil, core.FieldError{
				Field: "sections",
				Error: fmt.Sprintf("class %d is not a section of %s", nbr, course.Code()),
			})
		}
		if prev, dup := byComp[sec.Component]; dup {
			return nil, group, core.NewValidationError(nil, core.FieldError{
				Field: "sections",
				Error: fmt.Sprintf("only one %s section can be selected (got %s and %s)", sec.Component, prev.Section, sec.Section),
			})
		}
		byComp[sec.Component] = sec
	}

	selected := make([]SelectedSection, 0, len(byComp))
	for _, comp := range group.Components() {
		sec, ok := byComp[comp]
		if !ok {
			return nil, group, core.NewValidationError(nil, core.FieldError{
				Field: "sections",
				Error: fmt.Sprintf("a %s section of %s is required", comp, course.Code()),
			})
		}
		selected = append(selected, SelectedSection{
			ClassNbr:  sec.ClassNbr,
			Component: sec.Component,
			Section:   sec.Section,
			Meetings:  sec.Meetings,
		})
	}
	return selected, group, nil
}

func (svc *Service) getCourse(ctx context.Context, roster, subject, catalogNbr string) (catalog.Course, error) {
	course, err := svc.catalog.GetCourse(ctx, roster, subject, catalogNbr)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return course, core.NewValidationError(err, core.FieldError{
				Field: "catalogNbr",
				Error: fmt.Sprintf("%s %s is not offered in %s", subject, catalogNbr, roster),
			})
		}
		return course, errors.Wrap(err, "fetching course")
	}
	return course, nil
}

// AddCourse adds a catalog course with its selected sections to the schedule.
func (svc *Service) AddCourse(ctx context.Context, userID, roster string, nc NewScheduledCourse) (Schedule, error) {
	roster, err := checkKeys(userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	if err = nc.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}

	course, err := svc.getCourse(ctx, roster, nc.Subject, nc.CatalogNbr)
	if err != nil {
		return Schedule{}, err
	}
	sections, group, err := pickSections(course, nc.EnrollGroup, nc.Sections)
	if err != nil {
		return Schedule{}, err
	}

	defer svc.lock(userID, roster)()
	sched, err := svc.load(ctx, userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	for _, c := range sched.Courses {
		if c.CourseID == course.ID || (c.Subject == course.Subject && c.CatalogNbr == course.CatalogNbr) {
			return Schedule{}, core.NewValidationError(ErrDuplicateCourse, core.FieldError{Field: "catalogNbr", Error: ErrDuplicateCourse.Error()})
		}
	}

	color := nc.Color
	if color == "" {
		color = sched.nextColor()
	}
	sched.Courses = append(sched.Courses, ScheduledCourse{
		ID:          uuid.NewString(),
		CourseID:    course.ID,
		Subject:     course.Subject,
		CatalogNbr:  course.CatalogNbr,
		Title:       course.Title(),
		EnrollGroup: nc.EnrollGroup,
		Sections:    sections,
		Color:       color,
		Units:       group.UnitsMax,
		AddedAt:     svc.now(),
	})
	return svc.save(ctx, sched)
}

// UpdateCourse changes the selected sections and/or the color of a scheduled course.
func (svc *Service) UpdateCourse(ctx context.Context, userID, roster, id string, uc UpdateScheduledCourse) (Schedule, error) {
	roster, err := checkKeys(userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	if err = uc.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}

	defer svc.lock(userID, roster)()
	sched, err := svc.load(ctx, userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	i := sched.courseIndex(id)
	if i < 0 {
		return Schedule{}, ErrCourseNotFound
	}
	sc := &sched.Courses[i]

	if len(uc.Sections) > 0 {
		course, err := svc.getCourse(ctx, roster, sc.Subject, sc.CatalogNbr)
		if err != nil {
			return Schedule{}, err
		}
		sections, group, err := pickSections(course, sc.EnrollGroup, uc.Sections)
		if err != nil {
			return Schedule{}, err
		}
		sc.Sections = sections
		sc.Title = course.Title()
		sc.Units = group.UnitsMax
	}
	if uc.Color != "" {
		sc.Color = uc.Color
	}
	return svc.save(ctx, sched)
}

func (svc *Service) RemoveCourse(ctx context.Context, userID, roster, id string) (Schedule, error) {
	roster, err := checkKeys(userID, roster)
	if err != nil {
		return Schedule{}, err
	}

	defer svc.lock(userID, roster)()
	sched, err := svc.load(ctx, userID, roster)
	if err != nil {
		return Schedule{}, err
	}
	i := sched.courseIndex(id)
	if i < 0 {
		return Schedule{}, ErrCourseNotFound
	}
	sched.Courses = append(sched.Courses[:i], sched.Courses[i+1:]...)
	return svc.save(ctx, sched)
}

// Clear deletes the schedule. Clearing a schedule never saved is a no-op.
func (svc *Service) Clear(ctx context.Context, userID, roster string) error {
	roster, err := checkKeys(userID, roster)
	if err != nil {
		return err
	}

	defer svc.lock(userID, roster)()
	if err = svc.repo.DeleteSchedule(ctx, userID, roster); err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "deleting schedule")
	}
	return nil
}

func (svc *Service) Calendar(ctx context.Context, userID, roster string, opts CalendarOptions) (Calendar, error) {
	sched, err := svc.Get(ctx, userID, roster)
	if err != nil {
		return Calendar{}, err
	}
	return Layout(sched, opts)
}

// Validate reports the meeting conflicts and the walks too long for the gap between classes.
func (svc *Service) Validate(ctx context.Context, userID, roster string) ([]campus.Warning, error) {
	sched, err := svc.Get(ctx, userID, roster)
	if err != nil {
		return nil, err
	}
	warnings, err := svc.walker.ValidateWalking(ctx, sched.Meetings())
	if err != nil {
		return nil, errors.Wrap(err, "validating walks")
	}
	return warnings, nil
}

func (svc *Service) ExportICS(ctx context.Context, userID, roster string, w io.Writer) error {
	sched, err := svc.Get(ctx, userID, roster)
	if err != nil {
		return err
	}
	return svc.writeICS(sched, w)
}

type shareData struct {
	SharedBy    string
	Roster      string
	CourseCount int
	Units       float64
	Courses     []string
}

// Share emails the schedule, as an iCalendar attachment, to `to`.
func (svc *Service) Share(ctx context.Context, caller core.Caller, roster, to string) error {
	roster, err := checkKeys(caller.ID, roster)
	if err != nil {
		return err
	}
	to = core.CleanString(to, true /* lower */)
	if err = svc.validate.Var(to, "required,email"); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: "a valid email address is required"})
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: "a valid email address is required"})
	}

	defer svc.lock(caller.ID, roster)()
	sched, err := svc.load(ctx, caller.ID, roster)
	if err != nil {
		return err
	}
	if len(sched.Courses) == 0 {
		return core.NewValidationError(ErrEmptySchedule, core.FieldError{Field: "roster", Error: ErrEmptySchedule.Error()})
	}

	var ics bytes.Buffer
	if err = svc.writeICS(sched, &ics); err != nil {
		return err
	}

	sharedBy := caller.Email
	if sharedBy == "" {
		sharedBy = "A " + svc.appName + " user"
	}
	data := shareData{
		SharedBy:    sharedBy,
		Roster:      sched.Roster,
		CourseCount: len(sched.Courses),
		Units:       sched.Units(),
		Courses:     make([]string, 0, len(sched.Courses)),
	}
	for _, c := range sched.Courses {
		data.Courses = append(data.Courses, c.Code()+": "+c.Title)
	}
	sort.Strings(data.Courses)

	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      fmt.Sprintf("%s schedule shared by %s", sched.Roster, sharedBy),
		TemplateName: "share_schedule",
		TemplateData: data,
	}
	if err = msg.Attach(&ics, fmt.Sprintf("schedule-%s.ics", sched.Roster), "text/calendar"); err != nil {
		return err
	}
	if err = svc.mailSvc.SendMessage(ctx, msg); err != nil {
		return errors.Wrap(err, "sending schedule")
	}

	// sharing is not an edit: UpdatedAt is left as is
	now := svc.now()
	sched.SharedAt = &now
	if _, err = svc.repo.SaveSchedule(ctx, sched); err != nil {
		return errors.Wrap(err, "saving schedule")
	}
	return nil
}
