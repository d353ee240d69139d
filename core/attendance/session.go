package attendance

import (
	"fmt"
	"sort"
	"time"
)

// Session holds all lessons of one class sharing one calendar date, ordered by sequence.
// It is the unit of attendance decision making and is never stored.
type Session struct {
	Date    time.Time `json:"date"`
	Lessons []Lesson  `json:"lessons"`
}

func (s Session) DateKey() string {
	return s.Date.Format(DateLayout)
}

// LessonIDs returns the ids of the session's lessons, in sequence order.
func (s Session) LessonIDs() []string {
	ids := make([]string, 0, len(s.Lessons))
	for _, l := range s.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

// Status summarises the session: scheduled while no lesson is recorded,
// amended as soon as one lesson is amended, recorded otherwise.
func (s Session) Status() LessonStatus {
	status := StatusScheduled
	for _, l := range s.Lessons {
		switch l.Status {
		case StatusAmended:
			return StatusAmended
		case StatusRecorded:
			status = StatusRecorded
		}
	}
	return status
}

// IsPending reports whether every lesson of the session is still scheduled.
func (s Session) IsPending() bool {
	for _, l := range s.Lessons {
		if l.Status != StatusScheduled {
			return false
		}
	}
	return true
}

// Sessions maps a calendar date (DateLayout) to its session.
type Sessions map[string]Session

// Dates returns the session dates in ascending order.
func (ss Sessions) Dates() []string {
	dates := make([]string, 0, len(ss))
	for d := range ss {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Sorted returns the sessions in ascending date order.
func (ss Sessions) Sorted() []Session {
	sorted := make([]Session, 0, len(ss))
	for _, d := range ss.Dates() {
		sorted = append(sorted, ss[d])
	}
	return sorted
}

// Find returns the session held on date.
func (ss Sessions) Find(date time.Time) (Session, bool) {
	s, ok := ss[DateOf(date).Format(DateLayout)]
	return s, ok
}

// GroupSessions partitions lessons into daily sessions.
// The input is not mutated. Lessons sharing a date and a sequence index are both kept,
// in encounter order; see DetectAnomalies.
func GroupSessions(lessons []Lesson) Sessions {
	sessions := make(Sessions)
	for _, l := range lessons {
		key := l.DateKey()
		s, ok := sessions[key]
		if !ok {
			s = Session{Date: DateOf(l.Date)}
		}
		s.Lessons = append(s.Lessons, l)
		sessions[key] = s
	}
	for _, s := range sessions {
		lessons := s.Lessons
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Sequence < lessons[j].Sequence })
	}
	return sessions
}

// DetectAnomalies reports lessons of a same session sharing a sequence index.
func DetectAnomalies(sessions Sessions) []DataAnomaly {
	var anomalies []DataAnomaly
	for _, s := range sessions.Sorted() {
		anomalies = append(anomalies, duplicateSequences(s)...)
	}
	return anomalies
}

func duplicateSequences(s Session) []DataAnomaly {
	var anomalies []DataAnomaly
	for i := 1; i < len(s.Lessons); i++ {
		prev, curr := s.Lessons[i-1], s.Lessons[i]
		if prev.Sequence == curr.Sequence {
			anomalies = append(anomalies, DataAnomaly{
				Kind:     AnomalyDuplicateSequence,
				Date:     s.Date,
				LessonID: curr.ID,
				Detail:   fmt.Sprintf("lessons %s and %s share sequence %d", prev.ID, curr.ID, curr.Sequence),
			})
		}
	}
	return anomalies
}
