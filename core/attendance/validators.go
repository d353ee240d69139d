package attendance

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/diario/core"
)

var (
	lessonStatusTag  = "lesson_status"
	lessonStatusText = "must be one of scheduled, recorded or amended"

	modeTag  = "attendance_mode"
	modeText = "must be one of new or amend"

	hhmmTag   = "hhmm"
	hhmmText  = "must be a time formatted as HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// InitValidators registers the attendance validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(lessonStatusTag, lessonStatusValidation)
	core.RegisterCustomTranslation(validate, translator, lessonStatusTag, lessonStatusText)

	_ = validate.RegisterValidation(modeTag, modeValidation)
	core.RegisterCustomTranslation(validate, translator, modeTag, modeText)

	_ = validate.RegisterValidation(hhmmTag, hhmmValidation)
	core.RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	validate.RegisterStructValidation(lessonStructValidation, Lesson{})
}

// ValidateClass checks a class loaded from, or about to be stored into, a store.
func ValidateClass(validate *validator.Validate, class Class) error {
	if err := validate.Struct(class); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(class.Roster))
	for _, enr := range class.Roster {
		if _, ok := seen[enr.ID]; ok {
			return core.NewValidationError(nil, core.FieldError{Field: "roster", Error: "duplicate enrollment " + enr.ID})
		}
		seen[enr.ID] = struct{}{}
	}
	return nil
}

// Custom Validators

func lessonStatusValidation(fl validator.FieldLevel) bool {
	return LessonStatus(fl.Field().String()).Valid()
}

func modeValidation(fl validator.FieldLevel) bool {
	_, err := ParseMode(fl.Field().String())
	return err == nil
}

func hhmmValidation(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

// lessonStructValidation checks that a lesson has a date and does not end before it starts.
func lessonStructValidation(sl validator.StructLevel) {
	l, ok := sl.Current().Interface().(Lesson)
	if !ok {
		return
	}
	if l.Date.IsZero() {
		sl.ReportError(l.Date, "date", "Date", "required", "")
	}
	if hhmmRegex.MatchString(l.Start) && hhmmRegex.MatchString(l.End) && l.End < l.Start {
		sl.ReportError(l.End, "end", "End", "gtefield", "start")
	}
}
