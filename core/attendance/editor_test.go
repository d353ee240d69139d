package attendance_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/tests"
)

func newEditor(t *testing.T, class attendance.Class, date string, mode attendance.Mode) *attendance.Editor {
	s, ok := attendance.GroupSessions(class.Lessons).Find(testutil.Date(t, date))
	require.True(t, ok)
	m, _, err := attendance.BuildMatrix(s, class.Roster, mode)
	require.NoError(t, err)
	return attendance.NewEditor(class, m)
}

func TestEditor_Toggle(t *testing.T) {
	ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)

	present, err := ed.Toggle("E2", "L1")
	require.NoError(t, err)
	assert.True(t, present)

	snap := ed.Snapshot()
	assert.True(t, snap["E2"]["L1"])
	assert.False(t, snap["E2"]["L2"], "toggling must not affect sibling lessons")
	assert.False(t, snap["E1"]["L1"], "toggling must not affect other students")

	present, err = ed.Toggle("E2", "L1")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestEditor_unknownCell(t *testing.T) {
	ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)
	before := ed.Snapshot()

	tests := []struct {
		name       string
		enrollment string
		lesson     string
	}{
		{name: "unknown enrollment", enrollment: "E9", lesson: "L1"},
		{name: "unknown lesson", enrollment: "E1", lesson: "L9"},
		{name: "lesson of another session", enrollment: "E1", lesson: "L3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ed.Toggle(tt.enrollment, tt.lesson)
			assert.Equal(t, attendance.ErrUnknownCell, err)
			assert.Equal(t, attendance.ErrUnknownCell, ed.Set(tt.enrollment, tt.lesson, true))
		})
	}
	assert.Equal(t, before, ed.Snapshot())
}

func TestEditor_SetAll(t *testing.T) {
	for _, value := range []bool{true, false} {
		ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)
		_, _ = ed.Toggle("E1", "L1")
		_ = ed.Set("E3", "L2", true)
		_ = ed.Set("E2", "L2", false)

		ed.SetAll(value)
		for enrID, row := range ed.Snapshot() {
			for lessonID, v := range row {
				assert.Equal(t, value, v, "cell %s/%s", enrID, lessonID)
			}
		}
	}
}

func TestEditor_SetAllThenToggle(t *testing.T) {
	ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)
	ed.SetAll(true)
	_, err := ed.Toggle("E2", "L1")
	require.NoError(t, err)

	for enrID, row := range ed.Snapshot() {
		for lessonID, v := range row {
			want := !(enrID == "E2" && lessonID == "L1")
			assert.Equal(t, want, v, "cell %s/%s", enrID, lessonID)
		}
	}
	assert.Equal(t, map[string]bool{"L1": false, "L2": true}, ed.Snapshot()["E2"])
}

func TestEditor_concurrentWrites(t *testing.T) {
	ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ed.Set("E1", "L1", true)
		}()
		go func() {
			defer wg.Done()
			ed.SetAll(true)
		}()
	}
	wg.Wait()

	snap := ed.Snapshot()
	assert.True(t, snap["E1"]["L1"])
	assert.True(t, snap["E3"]["L2"])
}

func TestEditor_View(t *testing.T) {
	ed := newEditor(t, testutil.MathClass(), "2024-03-20", attendance.ModeNew)
	_ = ed.Set("E3", "L2", true)

	view := ed.View()
	assert.Equal(t, "math-9a", view.ClassID)
	assert.Equal(t, attendance.ModeNew, view.Mode)
	require.Len(t, view.Lessons, 2)
	assert.Equal(t, "L1", view.Lessons[0].ID)
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "E3", view.Rows[2].ID)
	assert.Equal(t, map[string]bool{"L1": false, "L2": true}, view.Rows[2].Present)
}
