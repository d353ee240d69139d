package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
)

// Date parses a YYYY-MM-DD date, failing the test on error.
func Date(t *testing.T, s string) time.Time {
	d, err := attendance.ParseDate(s)
	if err != nil {
		t.Fatalf("Date(%q) failed: %v", s, err)
	}
	return d
}

func mustDate(s string) time.Time {
	d, err := attendance.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Roster returns n enrollments E1..En of students S1..Sn.
func Roster(n int) []attendance.Enrollment {
	roster := make([]attendance.Enrollment, 0, n)
	for i := 1; i <= n; i++ {
		roster = append(roster, attendance.Enrollment{
			ID:        fmt.Sprintf("E%d", i),
			StudentID: fmt.Sprintf("S%d", i),
			Name:      fmt.Sprintf("Student %d", i),
		})
	}
	return roster
}

// Lesson returns a scheduled lesson held on date.
func Lesson(id, date string, seq int) attendance.Lesson {
	start := fmt.Sprintf("%02d:00", 7+seq)
	end := fmt.Sprintf("%02d:50", 7+seq)
	return attendance.Lesson{
		ID:       id,
		Date:     mustDate(date),
		Start:    start,
		End:      end,
		Sequence: seq,
		Status:   attendance.StatusScheduled,
	}
}

// Recorded marks the lesson as recorded with the given enrollments present.
func Recorded(l attendance.Lesson, present ...string) attendance.Lesson {
	l.Status = attendance.StatusRecorded
	l.Present = append([]string{}, present...)
	return l
}

// MathClass returns Math-9A: students S1..S3 and two scheduled lessons on 2024-03-20,
// plus one lesson on 2024-03-21.
func MathClass() attendance.Class {
	return attendance.Class{
		ID:         "math-9a",
		Name:       "Math-9A",
		Discipline: "Mathematics",
		Room:       "B12",
		Period:     "2024-S1",
		Roster:     Roster(3),
		Lessons: []attendance.Lesson{
			Lesson("L2", "2024-03-20", 2),
			Lesson("L1", "2024-03-20", 1),
			Lesson("L3", "2024-03-21", 1),
		},
	}
}

// Config returns the configuration used by tests.
func Config() *core.Config {
	return &core.Config{
		Env:      "TEST",
		AppName:  "Diario",
		TestMode: true,
		WorkDir:  core.Getwd(),
		Storage:  core.StorageInMem,
		Server: core.ServerConfig{
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Email: core.EmailConfig{
			DefaultFrom:       mail.Address{Address: "noreply@localhost"},
			AmendmentNoticeTo: []mail.Address{{Name: "Registrar", Address: "registrar@localhost"}},
		},
		Attendance: core.AttendanceConfig{SubmitTimeout: time.Second},
	}
}

// LogEntry is one message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
}

// Logger records every message instead of printing it.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg})
}

// Count returns the number of messages logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

// Mailbox collects sent messages synchronously.
type Mailbox struct {
	mu       sync.Mutex
	Messages []core.EmailMessage
}

var _ core.EmailService = (*Mailbox)(nil)

func (mb *Mailbox) SendMessages(messages ...*core.EmailMessage) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for _, msg := range messages {
		mb.Messages = append(mb.Messages, *msg)
	}
}

// FlakyWriter wraps a FactWriter and fails the next Failures calls with Err.
type FlakyWriter struct {
	attendance.FactWriter

	mu       sync.Mutex
	Failures int
	Err      error
	Calls    int
}

func (w *FlakyWriter) WriteAttendance(ctx context.Context, batch attendance.Batch) error {
	w.mu.Lock()
	w.Calls++
	fail := w.Failures > 0
	if fail {
		w.Failures--
	}
	w.mu.Unlock()

	if fail {
		return w.Err
	}
	return w.FactWriter.WriteAttendance(ctx, batch)
}
