package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/tests"
)

func setup(t *testing.T) (*DB, attendance.Repository) {
	db, err := Open()
	require.NoError(t, err)
	db.Seed(testutil.MathClass())
	return db, NewClassRepository(db)
}

func newBatch(t *testing.T, mode attendance.Mode, status attendance.LessonStatus, present map[string]bool) attendance.Batch {
	date := testutil.Date(t, "2024-03-20")
	batch := attendance.Batch{
		ClassID:   "math-9a",
		Date:      date,
		Mode:      mode,
		LessonIDs: []string{"L1", "L2"},
		Statuses:  map[string]attendance.LessonStatus{"L1": status, "L2": status},
	}
	for _, enr := range testutil.Roster(3) {
		batch.Facts = append(batch.Facts, attendance.Fact{EnrollmentID: enr.ID, StudentID: enr.StudentID, Date: date, Present: present[enr.ID]})
	}
	return batch
}

func Test_classRepository_GetClass(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	class, err := repo.GetClass(ctx, "math-9a")
	require.NoError(t, err)
	assert.Equal(t, "Math-9A", class.Name)

	// callers get copies
	class.Lessons[0].Status = attendance.StatusAmended
	class.Roster[0].Name = "changed"
	again, err := repo.GetClass(ctx, "math-9a")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusScheduled, again.Lessons[0].Status)
	assert.Equal(t, "Student 1", again.Roster[0].Name)

	_, err = repo.GetClass(ctx, "unknown")
	assert.Equal(t, attendance.ErrNotFound, err)
}

func Test_classRepository_WriteAttendance(t *testing.T) {
	recordedAt := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	amendedAt := recordedAt.Add(24 * time.Hour)
	defer func() { nowFunc = func() time.Time { return time.Now().UTC() } }()

	db, repo := setup(t)
	ctx := context.Background()

	nowFunc = func() time.Time { return recordedAt }
	err := repo.WriteAttendance(ctx, newBatch(t, attendance.ModeNew, attendance.StatusRecorded, map[string]bool{"E1": true, "E3": true}))
	require.NoError(t, err)

	class, _ := repo.GetClass(ctx, "math-9a")
	for _, l := range class.Lessons {
		if l.ID == "L3" {
			assert.Equal(t, attendance.StatusScheduled, l.Status)
			assert.Nil(t, l.Present)
			continue
		}
		assert.Equal(t, attendance.StatusRecorded, l.Status)
		assert.Equal(t, []string{"E1", "E3"}, l.Present)
	}

	nowFunc = func() time.Time { return amendedAt }
	err = repo.WriteAttendance(ctx, newBatch(t, attendance.ModeAmend, attendance.StatusAmended, nil))
	require.NoError(t, err)

	class, _ = repo.GetClass(ctx, "math-9a")
	assert.Equal(t, attendance.StatusAmended, class.Lessons[0].Status)
	assert.NotNil(t, class.Lessons[0].Present)
	assert.Empty(t, class.Lessons[0].Present)

	facts := db.Facts("math-9a")
	require.Len(t, facts, 3)
	for _, f := range facts {
		assert.False(t, f.Present)
		row := db.class.facts[factKey{enrollmentID: f.EnrollmentID, date: "2024-03-20"}]
		assert.Equal(t, recordedAt, row.recordedAt)
		assert.Equal(t, amendedAt, row.amendedAt)
	}
}

func Test_classRepository_WriteAttendance_allOrNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *attendance.Batch)
	}{
		{name: "unknown class", mutate: func(b *attendance.Batch) { b.ClassID = "unknown" }},
		{name: "unknown lesson", mutate: func(b *attendance.Batch) { b.LessonIDs = append(b.LessonIDs, "L9") }},
		{name: "lesson of another day", mutate: func(b *attendance.Batch) { b.LessonIDs = append(b.LessonIDs, "L3") }},
		{name: "unknown enrollment", mutate: func(b *attendance.Batch) { b.Facts[2].EnrollmentID = "E9" }},
		{name: "missing lesson status", mutate: func(b *attendance.Batch) { delete(b.Statuses, "L2") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, repo := setup(t)
			batch := newBatch(t, attendance.ModeNew, attendance.StatusRecorded, map[string]bool{"E1": true})
			tt.mutate(&batch)

			assert.Error(t, repo.WriteAttendance(context.Background(), batch))
			assert.Empty(t, db.Facts("math-9a"))
			class, _ := repo.GetClass(context.Background(), "math-9a")
			for _, l := range class.Lessons {
				assert.Equal(t, attendance.StatusScheduled, l.Status)
			}
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		db, repo := setup(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, repo.WriteAttendance(ctx, newBatch(t, attendance.ModeNew, attendance.StatusRecorded, nil)))
		assert.Empty(t, db.Facts("math-9a"))
	})
}
