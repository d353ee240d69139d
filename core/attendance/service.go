package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
)

const amendmentNoticeTemplate = "attendance_amended"

type (
	// RosterProvider is the read contract of the roster and schedule store.
	RosterProvider interface {
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context) ([]Class, error)
	}

	Repository interface {
		RosterProvider
		FactWriter
	}

	// ClassSaver is implemented by stores classes can be imported into.
	ClassSaver interface {
		SaveClass(ctx context.Context, class Class) (Class, error)
	}

	ClassSummary struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Discipline string `json:"discipline"`
		Room       string `json:"room"`
		Period     string `json:"period"`
		Students   int    `json:"students"`
		Stats      Stats  `json:"stats"`
	}

	SessionSummary struct {
		Date      time.Time    `json:"date"`
		Lessons   int          `json:"lessons"`
		Status    LessonStatus `json:"status"`
		Present   int          `json:"present"`
		Anomalies []string     `json:"anomalies,omitempty"`
	}

	Service struct {
		repo      Repository
		submitter *Submitter
		logger    core.Logger
		mailSvc   core.EmailService
		conf      *core.Config
	}

	amendmentNotice struct {
		ClassName string
		Date      string
		Students  int
		Lessons   int
		Diff      string
	}
)

func NewService(repo Repository, logger core.Logger, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:      repo,
		submitter: NewSubmitter(repo),
		logger:    logger,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	class, err := svc.repo.GetClass(ctx, core.CleanString(id))
	if err != nil {
		return Class{}, errors.Wrapf(err, "getting class %q", id)
	}
	return class, nil
}

// QueryClasses returns every class along with its statistics.
func (svc *Service) QueryClasses(ctx context.Context) ([]ClassSummary, error) {
	classes, err := svc.repo.QueryClasses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	summaries := make([]ClassSummary, 0, len(classes))
	for _, c := range classes {
		summaries = append(summaries, ClassSummary{
			ID:         c.ID,
			Name:       c.Name,
			Discipline: c.Discipline,
			Room:       c.Room,
			Period:     c.Period,
			Students:   len(c.Roster),
			Stats:      Aggregate(c.Roster, c.Lessons),
		})
	}
	return summaries, nil
}

func (svc *Service) Stats(ctx context.Context, classID string) (Stats, error) {
	class, err := svc.GetClass(ctx, classID)
	if err != nil {
		return Stats{}, err
	}
	return Aggregate(class.Roster, class.Lessons), nil
}

// ListSessions returns the class sessions in ascending date order.
func (svc *Service) ListSessions(ctx context.Context, classID string) ([]SessionSummary, error) {
	class, err := svc.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[string]struct{}, len(class.Roster))
	for _, enr := range class.Roster {
		enrolled[enr.ID] = struct{}{}
	}

	sorted := GroupSessions(class.Lessons).Sorted()
	summaries := make([]SessionSummary, 0, len(sorted))
	for _, s := range sorted {
		present := make(map[string]struct{})
		for _, l := range s.Lessons {
			for _, enrID := range l.Present {
				if _, ok := enrolled[enrID]; ok {
					present[enrID] = struct{}{}
				}
			}
		}
		summary := SessionSummary{
			Date:    s.Date,
			Lessons: len(s.Lessons),
			Status:  s.Status(),
			Present: len(present),
		}
		for _, a := range duplicateSequences(s) {
			summary.Anomalies = append(summary.Anomalies, a.String())
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Open builds the matrix of the class session held on date and returns an editor over it.
// Anomalies found in the stored data are logged and returned; they never prevent the opening.
func (svc *Service) Open(ctx context.Context, classID string, date time.Time, mode Mode) (*Editor, []DataAnomaly, error) {
	class, err := svc.GetClass(ctx, classID)
	if err != nil {
		return nil, nil, err
	}

	session, ok := GroupSessions(class.Lessons).Find(date)
	if !ok {
		return nil, nil, newConfigurationError("class %s has no lesson on %s", class.ID, DateOf(date).Format(DateLayout))
	}

	m, anomalies, err := BuildMatrix(session, class.Roster, mode)
	if err != nil {
		return nil, nil, err
	}
	svc.logAnomalies(class, anomalies)
	return NewEditor(class, m), anomalies, nil
}

// Submit writes the editor's matrix and recomputes the class statistics.
// A *SubmissionError leaves the editor untouched so that it can be submitted again.
func (svc *Service) Submit(ctx context.Context, ed *Editor) (Result, error) {
	before := ed.Session()

	subCtx := ctx
	if timeout := svc.conf.Attendance.SubmitTimeout; timeout > 0 {
		var cancel context.CancelFunc
		subCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := svc.submitter.Submit(subCtx, ed)
	if err != nil {
		if subErr, ok := AsSubmissionError(err); ok {
			svc.logger.Error(subErr.Error(), subErr.Err, map[string]interface{}{"class": ed.Class().ID})
		}
		return Result{}, err
	}

	if class, err := svc.repo.GetClass(ctx, res.ClassID); err != nil {
		svc.logger.Warn(fmt.Sprintf("refreshing statistics of class %s: %v", res.ClassID, err), err)
	} else {
		stats := Aggregate(class.Roster, class.Lessons)
		res.Stats = &stats
	}

	if res.Mode == ModeAmend {
		svc.notifyAmendment(ed.Class(), before, res)
	}
	return res, nil
}

func (svc *Service) logAnomalies(class Class, anomalies []DataAnomaly) {
	for _, a := range anomalies {
		svc.logger.Warn("attendance data anomaly: "+a.String(), map[string]interface{}{"class": class.ID, "lesson": a.LessonID})
	}
}

// notifyAmendment emails the configured recipients the changes of an amendment. Failures are only logged.
func (svc *Service) notifyAmendment(class Class, before Session, res Result) {
	if len(svc.conf.Email.AmendmentNoticeTo) == 0 {
		return
	}

	diff, err := AmendmentDiff(before, class.Roster, res.Facts)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("computing amendment diff: %v", err), err)
		return
	}
	if diff == "" {
		svc.logger.Debug("amendment of " + res.Date.Format(DateLayout) + " changed nothing; no notice sent")
		return
	}

	date := res.Date.Format(DateLayout)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           svc.conf.Email.AmendmentNoticeTo,
		Subject:      fmt.Sprintf("Attendance amended: %s, %s", class.Name, date),
		TemplateName: amendmentNoticeTemplate,
		TemplateData: amendmentNotice{
			ClassName: class.Name,
			Date:      date,
			Students:  res.Students,
			Lessons:   res.Lessons,
			Diff:      diff,
		},
	})
}
