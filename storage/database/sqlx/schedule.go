package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

const (
	selectSchedules = `SELECT user_id, roster, courses, created_at, updated_at, shared_at FROM schedules`

	upsertSchedule = `INSERT INTO schedules (user_id, roster, courses, created_at, updated_at, shared_at)
VALUES (:user_id, :roster, :courses, :created_at, :updated_at, :shared_at)
ON CONFLICT (user_id, roster) DO UPDATE SET
	courses = EXCLUDED.courses,
	updated_at = EXCLUDED.updated_at,
	shared_at = EXCLUDED.shared_at`
)

// scheduleRow maps the schedules table. Courses are stored as a JSONB document.
type scheduleRow struct {
	UserID    string         `db:"user_id"`
	Roster    string         `db:"roster"`
	Courses   types.JSONText `db:"courses"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	SharedAt  null.Time      `db:"shared_at"`
}

type scheduleRepository struct {
	exec core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) *scheduleRepository {
	return &scheduleRepository{exec: exec}
}

func (repo scheduleRepository) toRow(sched schedule.Schedule) (scheduleRow, error) {
	courses := sched.Courses
	if courses == nil {
		courses = []schedule.ScheduledCourse{}
	}
	doc, err := json.Marshal(courses)
	if err != nil {
		return scheduleRow{}, errors.Wrap(err, "encoding courses")
	}
	return scheduleRow{
		UserID:    sched.UserID,
		Roster:    sched.Roster,
		Courses:   doc,
		CreatedAt: sched.CreatedAt.UTC(),
		UpdatedAt: sched.UpdatedAt.UTC(),
		SharedAt:  null.TimeFromPtr(sched.SharedAt),
	}, nil
}

func (repo scheduleRepository) fromRow(row scheduleRow) (schedule.Schedule, error) {
	sched := schedule.Schedule{
		UserID:    row.UserID,
		Roster:    row.Roster,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		SharedAt:  row.SharedAt.Ptr(),
	}
	if err := row.Courses.Unmarshal(&sched.Courses); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "decoding courses")
	}
	if sched.Courses == nil {
		sched.Courses = []schedule.ScheduledCourse{}
	}
	return sched, nil
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrNotFound
func (repo scheduleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo scheduleRepository) GetSchedule(ctx context.Context, userID, roster string) (schedule.Schedule, error) {
	var row scheduleRow
	err := repo.exec.GetContext(ctx, &row, selectSchedules+` WHERE user_id = $1 AND roster = $2`, userID, roster)
	if err != nil {
		return schedule.Schedule{}, repo.trapNoRowsErr(err, "finding schedule")
	}
	return repo.fromRow(row)
}

func (repo scheduleRepository) ListSchedules(ctx context.Context, userID string) ([]schedule.Schedule, error) {
	ordering := core.DBOrdering{Field: "updated_at"}
	var rows []scheduleRow
	err := repo.exec.SelectContext(ctx, &rows, selectSchedules+` WHERE user_id = $1 ORDER BY `+ordering.String(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}

	scheds := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		sched, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, nil
}

func (repo scheduleRepository) SaveSchedule(ctx context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	row, err := repo.toRow(sched)
	if err != nil {
		return schedule.Schedule{}, err
	}
	if _, err = repo.exec.NamedExecContext(ctx, upsertSchedule, row); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "saving schedule")
	}
	return repo.fromRow(row)
}

func (repo scheduleRepository) DeleteSchedule(ctx context.Context, userID, roster string) error {
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM schedules WHERE user_id = $1 AND roster = $2`, userID, roster)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
