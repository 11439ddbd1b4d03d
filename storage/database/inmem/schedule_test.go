package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

func TestScheduleRepository(t *testing.T) {
	repo := NewScheduleRepository(Open())
	ctx := context.Background()
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	_, err := repo.GetSchedule(ctx, "u1", "SP26")
	assert.ErrorIs(t, err, schedule.ErrNotFound)

	sched := schedule.Schedule{
		UserID:    "u1",
		Roster:    "SP26",
		Courses:   []schedule.ScheduledCourse{{ID: "c1", Subject: "CS", CatalogNbr: "2110"}},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	_, err = repo.SaveSchedule(ctx, sched)
	require.NoError(t, err)

	// stored copies are isolated from the caller
	sched.Courses[0].Color = "#000000"
	got, err := repo.GetSchedule(ctx, "u1", "SP26")
	require.NoError(t, err)
	assert.Empty(t, got.Courses[0].Color)
	got.Courses[0].Color = "#ffffff"
	again, err := repo.GetSchedule(ctx, "u1", "SP26")
	require.NoError(t, err)
	assert.Empty(t, again.Courses[0].Color)

	// CreatedAt survives updates
	got.CreatedAt = t0.Add(time.Hour)
	got.UpdatedAt = t0.Add(2 * time.Hour)
	saved, err := repo.SaveSchedule(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, t0, saved.CreatedAt)

	_, err = repo.SaveSchedule(ctx, schedule.Schedule{UserID: "u1", Roster: "FA25", UpdatedAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	_, err = repo.SaveSchedule(ctx, schedule.Schedule{UserID: "u2", Roster: "SP26", UpdatedAt: t0})
	require.NoError(t, err)

	list, err := repo.ListSchedules(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SP26", list[0].Roster)
	assert.Equal(t, "FA25", list[1].Roster)
	assert.NotNil(t, list[1].Courses)

	require.NoError(t, repo.DeleteSchedule(ctx, "u1", "SP26"))
	assert.ErrorIs(t, repo.DeleteSchedule(ctx, "u1", "SP26"), schedule.ErrNotFound)
	list, err = repo.ListSchedules(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
