package database

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core/attendance"
)

// DecodeClasses reads a JSON array of classes, filling missing ids, and validates every class.
// Lesson dates are YYYY-MM-DD.
func DecodeClasses(r io.Reader, validate *validator.Validate) ([]attendance.Class, error) {
	var in []classFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(err, "decoding classes")
	}

	classes := make([]attendance.Class, 0, len(in))
	for i, cf := range in {
		class, err := cf.class()
		if err != nil {
			return nil, errors.Wrapf(err, "class #%d", i+1)
		}
		if err = attendance.ValidateClass(validate, class); err != nil {
			return nil, errors.Wrapf(err, "class %q", class.Name)
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// LoadClasses decodes the classes stored in the JSON file at path.
func LoadClasses(path string, validate *validator.Validate) ([]attendance.Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening classes file")
	}
	defer f.Close()
	return DecodeClasses(f, validate)
}

// SaveClasses stores classes one by one, stopping at the first failure.
func SaveClasses(ctx context.Context, saver attendance.ClassSaver, classes []attendance.Class) ([]attendance.Class, error) {
	saved := make([]attendance.Class, 0, len(classes))
	for _, class := range classes {
		c, err := saver.SaveClass(ctx, class)
		if err != nil {
			return saved, errors.Wrapf(err, "saving class %q", class.Name)
		}
		saved = append(saved, c)
	}
	return saved, nil
}

type (
	classFile struct {
		ID         string                  `json:"id"`
		Name       string                  `json:"name"`
		Discipline string                  `json:"discipline"`
		Room       string                  `json:"room"`
		Period     string                  `json:"period"`
		Roster     []attendance.Enrollment `json:"roster"`
		Lessons    []lessonFile            `json:"lessons"`
	}

	lessonFile struct {
		ID       string                  `json:"id"`
		Date     string                  `json:"date"`
		Start    string                  `json:"start"`
		End      string                  `json:"end"`
		Sequence int                     `json:"sequence"`
		Status   attendance.LessonStatus `json:"status"`
		Present  []string                `json:"present"`
	}
)

func (cf classFile) class() (attendance.Class, error) {
	class := attendance.Class{
		ID:         orNewID(cf.ID),
		Name:       cf.Name,
		Discipline: cf.Discipline,
		Room:       cf.Room,
		Period:     cf.Period,
		Roster:     make([]attendance.Enrollment, 0, len(cf.Roster)),
		Lessons:    make([]attendance.Lesson, 0, len(cf.Lessons)),
	}
	for _, enr := range cf.Roster {
		enr.ID = orNewID(enr.ID)
		class.Roster = append(class.Roster, enr)
	}
	for _, lf := range cf.Lessons {
		date, err := attendance.ParseDate(lf.Date)
		if err != nil {
			return attendance.Class{}, errors.Wrapf(err, "lesson %q", lf.ID)
		}
		status := lf.Status
		if status == "" {
			status = attendance.StatusScheduled
		}
		class.Lessons = append(class.Lessons, attendance.Lesson{
			ID:       orNewID(lf.ID),
			Date:     date,
			Start:    lf.Start,
			End:      lf.End,
			Sequence: lf.Sequence,
			Status:   status,
			Present:  lf.Present,
		})
	}
	return class, nil
}

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
