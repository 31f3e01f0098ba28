// Package inmemdb is an in-memory store with the same uniqueness and upsert semantics as the PostgreSQL one.
package inmemdb

import (
	"sync"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

// DB holds every table behind a single lock so multi-row writes are atomic.
type DB struct {
	mutex sync.RWMutex
	seq   map[string]int64

	users         map[int64]*user.User
	profiles      map[int64]*user.Profile // by user id
	courses       map[int64]*course.Course
	enrollments   map[int64]*course.Enrollment
	attendance    map[int64]*course.Attendance
	materials     map[int64]*coursework.Material
	activities    map[int64]*coursework.Activity
	submissions   map[int64]*coursework.Submission
	notifications map[int64]*notification.Notification
}

func Open() *DB {
	return &DB{
		seq:           make(map[string]int64),
		users:         make(map[int64]*user.User),
		profiles:      make(map[int64]*user.Profile),
		courses:       make(map[int64]*course.Course),
		enrollments:   make(map[int64]*course.Enrollment),
		attendance:    make(map[int64]*course.Attendance),
		materials:     make(map[int64]*coursework.Material),
		activities:    make(map[int64]*coursework.Activity),
		submissions:   make(map[int64]*coursework.Submission),
		notifications: make(map[int64]*notification.Notification),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

func (db *DB) username(id int64) string {
	if usr, ok := db.users[id]; ok {
		return usr.Username
	}
	return ""
}

// Close is a no-op, kept for parity with the SQL store.
func (db *DB) Close() error { return nil }
