package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type (
	classRow struct {
		ID         string      `db:"id"`
		Name       string      `db:"name"`
		Discipline string      `db:"discipline"`
		Room       null.String `db:"room"`
		Period     string      `db:"period"`
	}

	enrollmentRow struct {
		ID          string `db:"id"`
		ClassID     string `db:"class_id"`
		StudentID   string `db:"student_id"`
		StudentName string `db:"student_name"`
		Position    int    `db:"position"`
	}

	lessonRow struct {
		ID       string    `db:"id"`
		ClassID  string    `db:"class_id"`
		Date     time.Time `db:"date"`
		StartsAt string    `db:"starts_at"`
		EndsAt   string    `db:"ends_at"`
		Sequence int       `db:"sequence"`
		Status   string    `db:"status"`
	}

	factRow struct {
		EnrollmentID string    `db:"enrollment_id"`
		StudentID    string    `db:"student_id"`
		ClassID      string    `db:"class_id"`
		Date         time.Time `db:"date"`
		Present      bool      `db:"present"`
		RecordedAt   time.Time `db:"recorded_at"`
		AmendedAt    null.Time `db:"amended_at"`
	}
)

type classRepository struct {
	db *sqlx.DB
}

var (
	_ attendance.Repository = (*classRepository)(nil) // interface compliance check
	_ attendance.ClassSaver = (*classRepository)(nil)
)

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) GetClass(ctx context.Context, id string) (attendance.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Class{}, attendance.ErrNotFound
	}
	classes, err := repo.load(ctx, `SELECT id, name, discipline, room, period FROM class WHERE id = $1`, id)
	if err != nil {
		return attendance.Class{}, err
	}
	if len(classes) == 0 {
		return attendance.Class{}, attendance.ErrNotFound
	}
	return classes[0], nil
}

func (repo classRepository) QueryClasses(ctx context.Context) ([]attendance.Class, error) {
	return repo.load(ctx, `SELECT id, name, discipline, room, period FROM class ORDER BY name`)
}

// load runs a class query then fetches the rosters, lessons and facts of every returned class.
func (repo classRepository) load(ctx context.Context, query string, args ...interface{}) ([]attendance.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	if len(rows) == 0 {
		return []attendance.Class{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var enrollments []enrollmentRow
	q := `SELECT id, class_id, student_id, student_name, position FROM enrollment
		WHERE class_id = ANY($1) ORDER BY position, student_name`
	if err := repo.db.SelectContext(ctx, &enrollments, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}

	var lessons []lessonRow
	q = `SELECT id, class_id, date, starts_at, ends_at, sequence, status FROM lesson
		WHERE class_id = ANY($1) ORDER BY date, sequence`
	if err := repo.db.SelectContext(ctx, &lessons, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}

	var facts []factRow
	q = `SELECT enrollment_id, student_id, class_id, date, present, recorded_at, amended_at FROM attendance_fact
		WHERE class_id = ANY($1)`
	if err := repo.db.SelectContext(ctx, &facts, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting attendance facts")
	}

	// {classID: {date: present enrollment ids}}; a date key exists as soon as one fact is stored
	present := make(map[string]map[string][]string, len(rows))
	for _, f := range facts {
		byDate, ok := present[f.ClassID]
		if !ok {
			byDate = make(map[string][]string)
			present[f.ClassID] = byDate
		}
		key := f.Date.Format(attendance.DateLayout)
		if _, ok = byDate[key]; !ok {
			byDate[key] = []string{}
		}
		if f.Present {
			byDate[key] = append(byDate[key], f.EnrollmentID)
		}
	}

	classes := make([]attendance.Class, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.ID] = i
		classes = append(classes, attendance.Class{
			ID:         r.ID,
			Name:       r.Name,
			Discipline: r.Discipline,
			Room:       r.Room.String,
			Period:     r.Period,
			Roster:     []attendance.Enrollment{},
			Lessons:    []attendance.Lesson{},
		})
	}
	for _, e := range enrollments {
		c := &classes[index[e.ClassID]]
		c.Roster = append(c.Roster, attendance.Enrollment{ID: e.ID, StudentID: e.StudentID, Name: e.StudentName})
	}
	for _, l := range lessons {
		c := &classes[index[l.ClassID]]
		lesson := attendance.Lesson{
			ID:       l.ID,
			Date:     attendance.DateOf(l.Date),
			Start:    l.StartsAt,
			End:      l.EndsAt,
			Sequence: l.Sequence,
			Status:   attendance.LessonStatus(l.Status),
		}
		if lesson.Status.IsRecorded() {
			if ids, ok := present[l.ClassID][lesson.DateKey()]; ok {
				lesson.Present = append([]string{}, ids...)
			}
		}
		c.Lessons = append(c.Lessons, lesson)
	}
	return classes, nil
}

// WriteAttendance upserts the batch facts and moves the session lessons to their new status in one transaction.
func (repo classRepository) WriteAttendance(ctx context.Context, batch attendance.Batch) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			err = rollback(tx, err)
		}
	}()

	now := nowFunc()
	rows := make([]factRow, 0, len(batch.Facts))
	for _, f := range batch.Facts {
		row := factRow{
			EnrollmentID: f.EnrollmentID,
			StudentID:    f.StudentID,
			ClassID:      batch.ClassID,
			Date:         attendance.DateOf(f.Date),
			Present:      f.Present,
			RecordedAt:   now,
		}
		if batch.Mode == attendance.ModeAmend {
			row.AmendedAt = null.TimeFrom(now)
		}
		rows = append(rows, row)
	}

	q := `INSERT INTO attendance_fact (enrollment_id, student_id, class_id, date, present, recorded_at, amended_at)
		VALUES (:enrollment_id, :student_id, :class_id, :date, :present, :recorded_at, :amended_at)
		ON CONFLICT (enrollment_id, date) DO UPDATE SET present = EXCLUDED.present, amended_at = EXCLUDED.amended_at`
	for _, row := range rows {
		if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrapf(err, "upserting attendance fact of %s", row.EnrollmentID)
		}
	}

	byStatus := make(map[attendance.LessonStatus][]string)
	for _, id := range batch.LessonIDs {
		status, ok := batch.Statuses[id]
		if !ok || !status.Valid() {
			err = errors.Errorf("lesson %s has no valid target status", id)
			return err
		}
		byStatus[status] = append(byStatus[status], id)
	}

	q = `UPDATE lesson SET status = $1, updated_at = $2 WHERE class_id = $3 AND date = $4 AND id = ANY($5)`
	var updated int64
	for status, ids := range byStatus {
		res, err := tx.ExecContext(ctx, q, string(status), now, batch.ClassID, attendance.DateOf(batch.Date), pq.Array(ids))
		if err != nil {
			return errors.Wrap(err, "updating lesson status")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "updating lesson status")
		}
		updated += n
	}
	if int(updated) != len(batch.LessonIDs) {
		err = errors.Errorf("updated %d lessons out of %d", updated, len(batch.LessonIDs))
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing attendance")
	}
	return nil
}

// SaveClass inserts or replaces a class along with its roster and lessons. Missing ids are generated.
// Lesson status and stored attendance of existing lessons are left untouched.
func (repo classRepository) SaveClass(ctx context.Context, class attendance.Class) (_ attendance.Class, err error) {
	class = withIDs(class)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Class{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			err = rollback(tx, err)
		}
	}()

	q := `INSERT INTO class (id, name, discipline, room, period) VALUES (:id, :name, :discipline, :room, :period)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, discipline = EXCLUDED.discipline,
			room = EXCLUDED.room, period = EXCLUDED.period`
	row := classRow{
		ID:         class.ID,
		Name:       class.Name,
		Discipline: class.Discipline,
		Room:       null.NewString(class.Room, class.Room != ""),
		Period:     class.Period,
	}
	if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
		return attendance.Class{}, errors.Wrap(err, "saving class")
	}

	for i, e := range class.Roster {
		q = `INSERT INTO enrollment (id, class_id, student_id, student_name, position)
			VALUES (:id, :class_id, :student_id, :student_name, :position)
			ON CONFLICT (id) DO UPDATE SET student_name = EXCLUDED.student_name, position = EXCLUDED.position`
		enr := enrollmentRow{ID: e.ID, ClassID: class.ID, StudentID: e.StudentID, StudentName: e.Name, Position: i}
		if _, err = tx.NamedExecContext(ctx, q, enr); err != nil {
			return attendance.Class{}, errors.Wrap(err, "saving enrollment")
		}
	}

	for _, l := range class.Lessons {
		status := l.Status
		if status == "" {
			status = attendance.StatusScheduled
		}
		q = `INSERT INTO lesson (id, class_id, date, starts_at, ends_at, sequence, status)
			VALUES (:id, :class_id, :date, :starts_at, :ends_at, :sequence, :status)
			ON CONFLICT (id) DO UPDATE SET date = EXCLUDED.date, starts_at = EXCLUDED.starts_at,
				ends_at = EXCLUDED.ends_at, sequence = EXCLUDED.sequence`
		lr := lessonRow{
			ID:       l.ID,
			ClassID:  class.ID,
			Date:     attendance.DateOf(l.Date),
			StartsAt: l.Start,
			EndsAt:   l.End,
			Sequence: l.Sequence,
			Status:   string(status),
		}
		if _, err = tx.NamedExecContext(ctx, q, lr); err != nil {
			return attendance.Class{}, errors.Wrap(err, "saving lesson")
		}
	}

	if err = tx.Commit(); err != nil {
		return attendance.Class{}, errors.Wrap(err, "committing class")
	}
	return class, nil
}

func withIDs(class attendance.Class) attendance.Class {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	roster := make([]attendance.Enrollment, len(class.Roster))
	for i, e := range class.Roster {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		roster[i] = e
	}
	lessons := make([]attendance.Lesson, len(class.Lessons))
	for i, l := range class.Lessons {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		lessons[i] = l
	}
	class.Roster, class.Lessons = roster, lessons
	return class
}

// rollback aborts tx after err. A failed rollback leaves the store in an unknown state.
func rollback(tx *sqlx.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return core.WrapShutdown(rbErr, fmt.Sprintf("rollback failed after %q", err))
	}
	return err
}
