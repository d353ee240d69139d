package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
)

// FactWriter is the attendance write contract.
// WriteAttendance must either persist the whole batch or nothing at all.
type FactWriter interface {
	WriteAttendance(ctx context.Context, batch Batch) error
}

// Result describes a successful submission.
type Result struct {
	ClassID  string    `json:"class_id"`
	Date     time.Time `json:"date"`
	Mode     Mode      `json:"mode"`
	Students int       `json:"students"`
	Lessons  int       `json:"lessons"`
	Present  int       `json:"present"`
	Message  string    `json:"message"`
	Facts    []Fact    `json:"facts"`
	Session  Session   `json:"session"`
	// Stats are the class statistics recomputed after the submission, when available.
	Stats *Stats `json:"stats,omitempty"`
}

// Submitter reconciles a completed matrix into attendance facts.
type Submitter struct {
	writer FactWriter
}

func NewSubmitter(writer FactWriter) *Submitter {
	vala.BeginValidation().Validate(vala.IsNotNil(writer, "writer")).CheckAndPanic()
	return &Submitter{writer: writer}
}

// Flatten collapses the matrix into one fact per roster enrollment.
// A student present in any lesson of the session is present for the day.
//
// NOTE: whether the day's presence is the OR of its lessons or the value of one designated lesson
// still awaits product confirmation. Both agree while the lessons of a day share one decision.
func Flatten(m *Matrix) []Fact {
	facts := make([]Fact, 0, len(m.roster))
	for _, enr := range m.roster {
		var present bool
		for _, v := range m.cells[enr.ID] {
			if v {
				present = true
				break
			}
		}
		facts = append(facts, Fact{
			EnrollmentID: enr.ID,
			StudentID:    enr.StudentID,
			Date:         m.session.Date,
			Present:      present,
		})
	}
	return facts
}

// Submit hands the editor's matrix to the writer in a single batch.
// On failure nothing is changed locally and a *SubmissionError is returned, so the very same editor
// can be submitted again. On success every lesson of the session moves on by LessonStatus.Settle:
// recorded (ModeNew) or amended (ModeAmend), a lesson never recorded before becoming recorded.
func (sub *Submitter) Submit(ctx context.Context, ed *Editor) (Result, error) {
	ed.mu.Lock()
	m := ed.matrix
	mode := m.mode
	session := copySession(m.session)
	facts := Flatten(m)
	ed.mu.Unlock()

	if _, err := session.Status().Advance(mode); err != nil {
		return Result{}, newConfigurationError("cannot submit session of %s: %v", session.DateKey(), err)
	}
	statuses := make(map[string]LessonStatus, len(session.Lessons))
	for _, l := range session.Lessons {
		status, err := l.Status.Settle(mode)
		if err != nil {
			return Result{}, newConfigurationError("cannot submit lesson %s of %s: %v", l.ID, session.DateKey(), err)
		}
		statuses[l.ID] = status
	}

	batch := Batch{
		ClassID:   ed.class.ID,
		Date:      session.Date,
		Mode:      mode,
		LessonIDs: session.LessonIDs(),
		Statuses:  statuses,
		Facts:     facts,
	}
	if err := sub.writer.WriteAttendance(ctx, batch); err != nil {
		return Result{}, &SubmissionError{Mode: mode, Date: session.Date, Err: err}
	}

	present := presentIDs(facts)
	ed.mu.Lock()
	for i := range m.session.Lessons {
		m.session.Lessons[i].Status = statuses[m.session.Lessons[i].ID]
		m.session.Lessons[i].Present = append([]string(nil), present...)
	}
	session = copySession(m.session)
	ed.mu.Unlock()

	return Result{
		ClassID:  ed.class.ID,
		Date:     session.Date,
		Mode:     mode,
		Students: len(facts),
		Lessons:  len(session.Lessons),
		Present:  len(present),
		Message:  successMessage(mode, session.Date, len(facts), len(session.Lessons)),
		Facts:    facts,
		Session:  session,
	}, nil
}

func presentIDs(facts []Fact) []string {
	ids := make([]string, 0, len(facts))
	for _, f := range facts {
		if f.Present {
			ids = append(ids, f.EnrollmentID)
		}
	}
	return ids
}

func successMessage(mode Mode, date time.Time, students, lessons int) string {
	action := "recorded"
	if mode == ModeAmend {
		action = "amended"
	}
	return fmt.Sprintf("Attendance %s for %s: %d students, %d lessons.", action, date.Format(DateLayout), students, lessons)
}
