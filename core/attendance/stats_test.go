package attendance_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/tests"
)

func TestAggregate(t *testing.T) {
	lesson := testutil.Lesson
	recorded := testutil.Recorded

	tests := []struct {
		name    string
		roster  []attendance.Enrollment
		lessons []attendance.Lesson
		want    attendance.Stats
	}{
		{
			name:    "empty roster",
			lessons: []attendance.Lesson{recorded(lesson("L1", "2024-03-20", 1), "E1"), lesson("L2", "2024-03-21", 1)},
			want:    attendance.Stats{},
		},
		{
			name:    "nothing recorded",
			roster:  testutil.Roster(3),
			lessons: []attendance.Lesson{lesson("L1", "2024-03-20", 1), lesson("L2", "2024-03-20", 2), lesson("L3", "2024-03-21", 1)},
			want:    attendance.Stats{PendingSessions: 2},
		},
		{
			name:   "present in any lesson of the session",
			roster: testutil.Roster(3),
			lessons: []attendance.Lesson{
				recorded(lesson("L1", "2024-03-20", 1), "E1"),
				recorded(lesson("L2", "2024-03-20", 2), "E3"),
				lesson("L3", "2024-03-21", 1),
			},
			want: attendance.Stats{AverageAttendancePercent: 67, PendingSessions: 1, RecordedSessions: 1},
		},
		{
			name:   "mean over sessions",
			roster: testutil.Roster(4),
			lessons: []attendance.Lesson{
				recorded(lesson("L1", "2024-03-20", 1), "E1", "E2", "E3", "E4"),
				recorded(lesson("L2", "2024-03-21", 1), "E1"),
			},
			want: attendance.Stats{AverageAttendancePercent: 63, RecordedSessions: 2}, // (100 + 25) / 2 = 62.5
		},
		{
			name:   "students out of the roster are ignored",
			roster: testutil.Roster(2),
			lessons: []attendance.Lesson{
				recorded(lesson("L1", "2024-03-20", 1), "E1", "E7", "E8"),
			},
			want: attendance.Stats{AverageAttendancePercent: 50, RecordedSessions: 1},
		},
		{
			name:   "partly recorded session is not pending",
			roster: testutil.Roster(2),
			lessons: []attendance.Lesson{
				recorded(lesson("L1", "2024-03-20", 1)),
				lesson("L2", "2024-03-20", 2),
			},
			want: attendance.Stats{RecordedSessions: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attendance.Aggregate(tt.roster, tt.lessons))
		})
	}
}

func TestAmendmentDiff(t *testing.T) {
	roster := testutil.Roster(3)
	before := attendance.Session{Lessons: []attendance.Lesson{
		testutil.Recorded(testutil.Lesson("L1", "2024-03-20", 1), "E1", "E3"),
		testutil.Recorded(testutil.Lesson("L2", "2024-03-20", 2), "E1", "E3"),
	}}
	facts := []attendance.Fact{
		{EnrollmentID: "E1", Present: true},
		{EnrollmentID: "E2", Present: true},
		{EnrollmentID: "E3", Present: true},
	}

	diff, err := attendance.AmendmentDiff(before, roster, facts)
	require.NoError(t, err)
	assert.Contains(t, diff, "-Student 2 (S2): absent")
	assert.Contains(t, diff, "+Student 2 (S2): present")
	assert.False(t, strings.Contains(diff, "Student 1"), "unchanged students are not listed")

	facts[1].Present = false
	diff, err = attendance.AmendmentDiff(before, roster, facts)
	require.NoError(t, err)
	assert.Empty(t, diff)
}
