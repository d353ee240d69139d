package attendance

import (
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the calendar date format used to key sessions and facts.
const DateLayout = "2006-01-02"

// LessonStatus is the closed set of states a lesson occurrence goes through.
type LessonStatus string

const (
	StatusScheduled LessonStatus = "scheduled"
	StatusRecorded  LessonStatus = "recorded"
	StatusAmended   LessonStatus = "amended"
)

var errInvalidTransition = errors.New("invalid lesson status transition")

// Valid returns true when the status is a supported value.
func (s LessonStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusRecorded, StatusAmended:
		return true
	default:
		return false
	}
}

// IsRecorded reports whether attendance was taken for the lesson at least once.
func (s LessonStatus) IsRecorded() bool {
	return s == StatusRecorded || s == StatusAmended
}

// Advance returns the status reached after a successful submission in the given mode:
//   - new:   scheduled -> recorded
//   - amend: recorded|amended -> amended
func (s LessonStatus) Advance(mode Mode) (LessonStatus, error) {
	switch {
	case mode == ModeNew && s == StatusScheduled:
		return StatusRecorded, nil
	case mode == ModeAmend && s.IsRecorded():
		return StatusAmended, nil
	}
	return s, errors.Wrapf(errInvalidTransition, "%s (%s)", s, mode)
}

// Settle returns the status a single lesson reaches when its session is submitted in mode.
// It follows Advance, except that a lesson still scheduled inside an amended session
// gets its first recording (scheduled -> recorded) instead of jumping to amended.
func (s LessonStatus) Settle(mode Mode) (LessonStatus, error) {
	if mode == ModeAmend && s == StatusScheduled {
		return StatusRecorded, nil
	}
	return s.Advance(mode)
}

// Mode tells whether a matrix records a day for the first time or amends it.
type Mode int

const (
	ModeNew Mode = iota
	ModeAmend
)

func (m Mode) String() string {
	if m == ModeAmend {
		return "amend"
	}
	return "new"
}

// ParseMode parses "new" or "amend".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "new":
		return ModeNew, nil
	case "amend":
		return ModeAmend, nil
	}
	return ModeNew, errors.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	mode, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Enrollment links a student to one class offering. Its ID keys the attendance facts,
// since the same student may be enrolled in the same class across several periods.
type Enrollment struct {
	ID        string `json:"id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name" validate:"notblank"`
}

// Lesson is one scheduled meeting of a class.
type Lesson struct {
	ID       string       `json:"id" validate:"required"`
	Date     time.Time    `json:"date"` // calendar date, UTC midnight
	Start    string       `json:"start" validate:"hhmm"`
	End      string       `json:"end" validate:"hhmm"`
	Sequence int          `json:"sequence" validate:"gte=0"`
	Status   LessonStatus `json:"status" validate:"lesson_status"`
	// Present holds the enrollment ids marked present.
	// nil means nothing is stored for the lesson, an empty slice means everyone was absent.
	Present []string `json:"present"`
}

// DateKey returns the lesson's calendar date formatted with DateLayout.
func (l Lesson) DateKey() string {
	return l.Date.Format(DateLayout)
}

// HasStoredPresence reports whether attendance data exists for the lesson.
func (l Lesson) HasStoredPresence() bool {
	return l.Present != nil
}

// Class is a teaching unit for one discipline during one period.
type Class struct {
	ID         string       `json:"id" validate:"required"`
	Name       string       `json:"name" validate:"notblank"`
	Discipline string       `json:"discipline"`
	Room       string       `json:"room"`
	Period     string       `json:"period"`
	Roster     []Enrollment `json:"roster" validate:"dive"`
	Lessons    []Lesson     `json:"lessons" validate:"dive"`
}

// Enrollment returns the roster entry with the given id.
func (c Class) Enrollment(id string) (Enrollment, bool) {
	for _, e := range c.Roster {
		if e.ID == id {
			return e, true
		}
	}
	return Enrollment{}, false
}

// Fact is the atomic unit sent to storage: one per student per session per submission.
type Fact struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	Date         time.Time `json:"date"`
	Present      bool      `json:"present"`
}

// Batch is handed to the FactWriter as a single unit of work.
// Besides the facts it names the session it belongs to,
// so that stores can persist the lessons' new status within the same transaction.
type Batch struct {
	ClassID   string
	Date      time.Time
	Mode      Mode
	LessonIDs []string
	Statuses  map[string]LessonStatus // lesson id -> status reached, one entry per LessonIDs
	Facts     []Fact
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOf truncates t to its calendar date, in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
