package attendance

import "math"

// Stats are the per-class figures shown on dashboards.
type Stats struct {
	AverageAttendancePercent int `json:"average_attendance_percent"`
	PendingSessions          int `json:"pending_sessions"`
	RecordedSessions         int `json:"recorded_sessions"`
}

// Aggregate rolls the recorded attendance of a class up.
// The average is the mean, over recorded and amended sessions, of the share of the roster present
// in any lesson of the session; it is 0 until a session gets recorded.
// Pending sessions are the ones whose lessons are all still scheduled.
// An empty roster yields zero stats.
func Aggregate(roster []Enrollment, lessons []Lesson) Stats {
	if len(roster) == 0 {
		return Stats{}
	}

	enrolled := make(map[string]struct{}, len(roster))
	for _, enr := range roster {
		enrolled[enr.ID] = struct{}{}
	}

	var (
		stats Stats
		sum   float64
	)
	for _, s := range GroupSessions(lessons) {
		if s.IsPending() {
			stats.PendingSessions++
			continue
		}
		present := make(map[string]struct{}, len(enrolled))
		for _, l := range s.Lessons {
			for _, enrID := range l.Present {
				if _, ok := enrolled[enrID]; ok {
					present[enrID] = struct{}{}
				}
			}
		}
		sum += float64(len(present)) / float64(len(enrolled)) * 100
		stats.RecordedSessions++
	}
	if stats.RecordedSessions > 0 {
		stats.AverageAttendancePercent = int(math.Round(sum / float64(stats.RecordedSessions)))
	}
	return stats
}
