package inmemdb

import (
	"sync"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

type (
	DB struct {
		schedule *scheduleTable
	}

	// scheduleTable is keyed by user id, then roster.
	scheduleTable struct {
		mutex sync.RWMutex
		table map[string]map[string]schedule.Schedule
	}
)

// Open returns an empty in-memory database (DEV and tests).
func Open() *DB {
	return &DB{
		schedule: &scheduleTable{table: make(map[string]map[string]schedule.Schedule)},
	}
}
