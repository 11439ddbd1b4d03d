package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

type scheduleRepository struct {
	db *scheduleTable
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db.schedule}
}

// clone deep copies sched so callers never share the stored courses.
func clone(sched schedule.Schedule) (schedule.Schedule, error) {
	data, err := json.Marshal(sched.Courses)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "copying schedule")
	}
	cp := sched
	cp.Courses = nil
	if err = json.Unmarshal(data, &cp.Courses); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "copying schedule")
	}
	if cp.Courses == nil {
		cp.Courses = []schedule.ScheduledCourse{}
	}
	if sched.SharedAt != nil {
		sharedAt := *sched.SharedAt
		cp.SharedAt = &sharedAt
	}
	return cp, nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, userID, roster string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sched, ok := repo.db.table[userID][roster]
	if !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return clone(sched)
}

func (repo *scheduleRepository) ListSchedules(_ context.Context, userID string) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	scheds := make([]schedule.Schedule, 0, len(repo.db.table[userID]))
	for _, s := range repo.db.table[userID] {
		cp, err := clone(s)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, cp)
	}
	sort.Slice(scheds, func(i, j int) bool { return scheds[i].UpdatedAt.After(scheds[j].UpdatedAt) })
	return scheds, nil
}

func (repo *scheduleRepository) SaveSchedule(_ context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	stored, err := clone(sched)
	if err != nil {
		return schedule.Schedule{}, err
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.table[sched.UserID][sched.Roster]; ok {
		stored.CreatedAt = orig.CreatedAt
	}
	if repo.db.table[sched.UserID] == nil {
		repo.db.table[sched.UserID] = make(map[string]schedule.Schedule)
	}
	repo.db.table[sched.UserID][sched.Roster] = stored
	return clone(stored)
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, userID, roster string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[userID][roster]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.table[userID], roster)
	if len(repo.db.table[userID]) == 0 {
		delete(repo.db.table, userID)
	}
	return nil
}
