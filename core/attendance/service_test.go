package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/storage/database/inmem"
	"github.com/trezcool/diario/tests"
)

type serviceDeps struct {
	db     *inmemdb.DB
	writer *testutil.FlakyWriter
	logger *testutil.Logger
	mail   *testutil.Mailbox
}

type flakyRepository struct {
	attendance.RosterProvider
	*testutil.FlakyWriter
}

func setup(t *testing.T, classes ...attendance.Class) (*attendance.Service, *serviceDeps) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	db.Seed(classes...)

	repo := inmemdb.NewClassRepository(db)
	deps := &serviceDeps{
		db:     db,
		writer: &testutil.FlakyWriter{FactWriter: repo},
		logger: &testutil.Logger{},
		mail:   &testutil.Mailbox{},
	}
	svc := attendance.NewService(&flakyRepository{RosterProvider: repo, FlakyWriter: deps.writer}, deps.logger, deps.mail, testutil.Config())
	return svc, deps
}

func TestService_scenarios(t *testing.T) {
	ctx := context.Background()
	date := testutil.Date(t, "2024-03-20")
	svc, deps := setup(t, testutil.MathClass())

	t.Run("new recording", func(t *testing.T) {
		ed, anomalies, err := svc.Open(ctx, "math-9a", date, attendance.ModeNew)
		require.NoError(t, err)
		assert.Empty(t, anomalies)

		for _, row := range ed.Snapshot() {
			assert.Equal(t, map[string]bool{"L1": false, "L2": false}, row)
		}
		_, err = ed.Toggle("E1", "L1")
		require.NoError(t, err)
		_, err = ed.Toggle("E3", "L1")
		require.NoError(t, err)

		res, err := svc.Submit(ctx, ed)
		require.NoError(t, err)
		assert.Equal(t, "Attendance recorded for 2024-03-20: 3 students, 2 lessons.", res.Message)
		require.NotNil(t, res.Stats)
		assert.Equal(t, 67, res.Stats.AverageAttendancePercent)
		assert.Equal(t, 1, res.Stats.PendingSessions)

		class, err := svc.GetClass(ctx, "math-9a")
		require.NoError(t, err)
		for _, l := range class.Lessons[:2] {
			assert.Equal(t, attendance.StatusRecorded, l.Status)
			assert.ElementsMatch(t, []string{"E1", "E3"}, l.Present)
		}
		assert.Equal(t, map[string]bool{"E1": true, "E2": false, "E3": true}, factsByEnrollment(deps.db.Facts("math-9a")))
		assert.Empty(t, deps.mail.Messages, "no notice for first recordings")
	})

	t.Run("new on recorded day", func(t *testing.T) {
		_, _, err := svc.Open(ctx, "math-9a", date, attendance.ModeNew)
		assert.True(t, attendance.IsConfigurationError(err), "got %v", err)
	})

	t.Run("submission failure", func(t *testing.T) {
		ed, _, err := svc.Open(ctx, "math-9a", date, attendance.ModeAmend)
		require.NoError(t, err)
		_, err = ed.Toggle("E2", "L1")
		require.NoError(t, err)
		before := ed.Snapshot()

		deps.writer.Failures = 1
		deps.writer.Err = errors.New("database is unreachable")
		_, err = svc.Submit(ctx, ed)
		subErr, ok := attendance.AsSubmissionError(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, attendance.ModeAmend, subErr.Mode)
		assert.Contains(t, subErr.Error(), "amending attendance of 2024-03-20 failed")
		assert.Equal(t, before, ed.Snapshot())
		assert.Equal(t, 1, deps.logger.Count("error"))

		class, err := svc.GetClass(ctx, "math-9a")
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusRecorded, class.Lessons[0].Status, "store must be untouched")
		assert.Empty(t, deps.mail.Messages)
	})

	t.Run("amendment", func(t *testing.T) {
		ed, _, err := svc.Open(ctx, "math-9a", date, attendance.ModeAmend)
		require.NoError(t, err)
		snap := ed.Snapshot()
		assert.True(t, snap["E1"]["L1"])
		assert.False(t, snap["E2"]["L1"])
		assert.True(t, snap["E3"]["L2"])

		present, err := ed.Toggle("E2", "L1")
		require.NoError(t, err)
		assert.True(t, present)

		res, err := svc.Submit(ctx, ed)
		require.NoError(t, err)
		assert.Equal(t, "Attendance amended for 2024-03-20: 3 students, 2 lessons.", res.Message)
		assert.Equal(t, 100, res.Stats.AverageAttendancePercent)

		class, err := svc.GetClass(ctx, "math-9a")
		require.NoError(t, err)
		for _, l := range class.Lessons[:2] {
			assert.Equal(t, attendance.StatusAmended, l.Status)
		}
		assert.Equal(t, map[string]bool{"E1": true, "E2": true, "E3": true}, factsByEnrollment(deps.db.Facts("math-9a")))

		require.Len(t, deps.mail.Messages, 1)
		msg := deps.mail.Messages[0]
		assert.Equal(t, "attendance_amended", msg.TemplateName)
		assert.Equal(t, "registrar@localhost", msg.To[0].Address)
	})

	t.Run("amendment without changes", func(t *testing.T) {
		ed, _, err := svc.Open(ctx, "math-9a", date, attendance.ModeAmend)
		require.NoError(t, err)

		_, err = svc.Submit(ctx, ed)
		require.NoError(t, err)
		assert.Len(t, deps.mail.Messages, 1, "no notice when nothing changed")
	})
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()
	dup := testutil.MathClass()
	dup.ID = "dup"
	dup.Lessons = append(dup.Lessons, testutil.Lesson("L4", "2024-03-21", 1))
	svc, deps := setup(t, testutil.MathClass(), dup)

	t.Run("unknown class", func(t *testing.T) {
		_, _, err := svc.Open(ctx, "nope", testutil.Date(t, "2024-03-20"), attendance.ModeNew)
		assert.Equal(t, attendance.ErrNotFound, errors.Cause(err))
	})

	t.Run("no lesson on date", func(t *testing.T) {
		_, _, err := svc.Open(ctx, "math-9a", testutil.Date(t, "2024-04-01"), attendance.ModeNew)
		assert.True(t, attendance.IsConfigurationError(err), "got %v", err)
	})

	t.Run("anomalies are logged", func(t *testing.T) {
		ed, anomalies, err := svc.Open(ctx, "dup", testutil.Date(t, "2024-03-21"), attendance.ModeNew)
		require.NoError(t, err)
		require.NotNil(t, ed)
		require.Len(t, anomalies, 1)
		assert.Equal(t, 1, deps.logger.Count("warn"))
	})
}

func TestService_QueryClasses(t *testing.T) {
	empty := attendance.Class{ID: "empty", Name: "Art-1B", Lessons: []attendance.Lesson{testutil.Lesson("A1", "2024-03-20", 1)}}
	svc, _ := setup(t, testutil.MathClass(), empty)

	summaries, err := svc.QueryClasses(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Art-1B", summaries[0].Name)
	assert.Equal(t, attendance.Stats{}, summaries[0].Stats)
	assert.Equal(t, 3, summaries[1].Students)
	assert.Equal(t, 2, summaries[1].Stats.PendingSessions)

	stats, err := svc.Stats(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, attendance.Stats{}, stats)
}

func TestService_ListSessions(t *testing.T) {
	class := testutil.MathClass()
	class.Lessons[0] = testutil.Recorded(class.Lessons[0], "E1", "E2")
	class.Lessons[1] = testutil.Recorded(class.Lessons[1], "E3")
	svc, _ := setup(t, class)

	sessions, err := svc.ListSessions(context.Background(), "math-9a")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "2024-03-20", sessions[0].Date.Format(attendance.DateLayout))
	assert.Equal(t, 2, sessions[0].Lessons)
	assert.Equal(t, attendance.StatusRecorded, sessions[0].Status)
	assert.Equal(t, 3, sessions[0].Present)

	assert.Equal(t, attendance.StatusScheduled, sessions[1].Status)
	assert.Equal(t, 0, sessions[1].Present)
}

func TestService_Submit_timeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc, _ := setup(t, testutil.MathClass())

	ed, _, err := svc.Open(ctx, "math-9a", testutil.Date(t, "2024-03-20"), attendance.ModeNew)
	require.NoError(t, err)
	ed.SetAll(true)

	cancel()
	_, err = svc.Submit(ctx, ed)
	subErr, ok := attendance.AsSubmissionError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, attendance.ModeNew, subErr.Mode)
	assert.Equal(t, context.Canceled, errors.Cause(subErr.Err))

	for _, row := range ed.Snapshot() {
		assert.Equal(t, map[string]bool{"L1": true, "L2": true}, row)
	}
}
