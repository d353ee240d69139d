package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core/attendance"
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type classRepository struct {
	db *classTable
}

var (
	_ attendance.Repository = (*classRepository)(nil) // interface compliance check
	_ attendance.ClassSaver = (*classRepository)(nil)
)

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (attendance.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return copyClass(*c), nil
	}
	return attendance.Class{}, attendance.ErrNotFound
}

func (repo *classRepository) QueryClasses(ctx context.Context) ([]attendance.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]attendance.Class, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		classes = append(classes, copyClass(*c))
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// WriteAttendance checks the whole batch before touching anything, then applies it under the table lock.
func (repo *classRepository) WriteAttendance(ctx context.Context, batch attendance.Batch) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "writing attendance")
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[batch.ClassID]
	if !ok {
		return attendance.ErrNotFound
	}

	date := batch.Date.Format(attendance.DateLayout)
	lessonIdx := make(map[string]int, len(c.Lessons))
	for i, l := range c.Lessons {
		lessonIdx[l.ID] = i
	}
	for _, id := range batch.LessonIDs {
		i, ok := lessonIdx[id]
		if !ok {
			return errors.Errorf("lesson %s not found in class %s", id, c.ID)
		}
		if c.Lessons[i].DateKey() != date {
			return errors.Errorf("lesson %s is not held on %s", id, date)
		}
		if !batch.Statuses[id].Valid() {
			return errors.Errorf("lesson %s has no valid target status", id)
		}
	}
	for _, f := range batch.Facts {
		if _, ok := c.Enrollment(f.EnrollmentID); !ok {
			return errors.Errorf("enrollment %s not found in class %s", f.EnrollmentID, c.ID)
		}
	}

	now := nowFunc()
	present := make([]string, 0, len(batch.Facts))
	for _, f := range batch.Facts {
		key := factKey{enrollmentID: f.EnrollmentID, date: date}
		row, exists := repo.db.facts[key]
		if !exists {
			row = factRow{classID: c.ID, recordedAt: now}
		}
		if batch.Mode == attendance.ModeAmend {
			row.amendedAt = now
		}
		row.Fact = f
		repo.db.facts[key] = row
		if f.Present {
			present = append(present, f.EnrollmentID)
		}
	}
	for _, id := range batch.LessonIDs {
		l := &c.Lessons[lessonIdx[id]]
		l.Status = batch.Statuses[id]
		l.Present = append([]string(nil), present...)
		if l.Present == nil {
			l.Present = []string{}
		}
	}
	return nil
}

// SaveClass stores a class, generating missing ids.
// Status and stored presence of lessons already known are kept.
func (repo *classRepository) SaveClass(ctx context.Context, class attendance.Class) (attendance.Class, error) {
	class = copyClass(class)
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	for i := range class.Roster {
		if class.Roster[i].ID == "" {
			class.Roster[i].ID = uuid.NewString()
		}
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	known := make(map[string]attendance.Lesson)
	if prev, ok := repo.db.table[class.ID]; ok {
		for _, l := range prev.Lessons {
			known[l.ID] = l
		}
	}
	for i := range class.Lessons {
		l := &class.Lessons[i]
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if prev, ok := known[l.ID]; ok {
			l.Status, l.Present = prev.Status, prev.Present
		} else if l.Status == "" {
			l.Status = attendance.StatusScheduled
		}
	}

	stored := copyClass(class)
	repo.db.table[class.ID] = &stored
	return class, nil
}
