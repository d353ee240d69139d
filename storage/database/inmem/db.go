package inmemdb

import (
	"sort"
	"sync"
	"time"

	"github.com/trezcool/diario/core/attendance"
)

type (
	DB struct {
		class *classTable
	}

	classTable struct {
		sync.RWMutex
		table map[string]*attendance.Class
		facts map[factKey]factRow
	}

	factKey struct {
		enrollmentID string
		date         string
	}

	factRow struct {
		attendance.Fact
		classID    string
		recordedAt time.Time
		amendedAt  time.Time
	}
)

func Open() (*DB, error) {
	db := &DB{
		class: &classTable{
			table: make(map[string]*attendance.Class),
			facts: make(map[factKey]factRow),
		},
	}
	return db, nil
}

// Seed stores classes, replacing any class with the same id.
func (db *DB) Seed(classes ...attendance.Class) {
	db.class.Lock()
	defer db.class.Unlock()
	for _, c := range classes {
		c := copyClass(c)
		db.class.table[c.ID] = &c
	}
}

func copyClass(c attendance.Class) attendance.Class {
	c.Roster = append([]attendance.Enrollment(nil), c.Roster...)
	lessons := make([]attendance.Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		if l.Present != nil {
			l.Present = append(make([]string, 0, len(l.Present)), l.Present...)
		}
		lessons[i] = l
	}
	c.Lessons = lessons
	return c
}

// Facts returns the stored attendance facts of a class, by date then enrollment.
func (db *DB) Facts(classID string) []attendance.Fact {
	db.class.RLock()
	defer db.class.RUnlock()

	facts := make([]attendance.Fact, 0)
	for _, row := range db.class.facts {
		if row.classID == classID {
			facts = append(facts, row.Fact)
		}
	}
	sort.Slice(facts, func(i, j int) bool {
		if !facts[i].Date.Equal(facts[j].Date) {
			return facts[i].Date.Before(facts[j].Date)
		}
		return facts[i].EnrollmentID < facts[j].EnrollmentID
	})
	return facts
}
