package attendance_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/tests"
)

func TestValidateClass(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	tests := []struct {
		name      string
		mutate    func(c *attendance.Class)
		wantField string
	}{
		{name: "valid", mutate: func(c *attendance.Class) {}},
		{name: "blank name", mutate: func(c *attendance.Class) { c.Name = "  " }, wantField: "name"},
		{name: "bad status", mutate: func(c *attendance.Class) { c.Lessons[0].Status = "cancelled" }, wantField: "status"},
		{name: "bad start", mutate: func(c *attendance.Class) { c.Lessons[0].Start = "8h" }, wantField: "start"},
		{name: "ends before start", mutate: func(c *attendance.Class) { c.Lessons[0].End = "06:00" }, wantField: "end"},
		{name: "missing date", mutate: func(c *attendance.Class) { c.Lessons[1].Date = time.Time{} }, wantField: "date"},
		{name: "missing enrollment id", mutate: func(c *attendance.Class) { c.Roster[1].ID = "" }, wantField: "id"},
		{name: "duplicate enrollment", mutate: func(c *attendance.Class) { c.Roster[2].ID = "E1" }, wantField: "roster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := testutil.MathClass()
			tt.mutate(&class)

			err := attendance.ValidateClass(validate, class)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				switch e := err.(type) {
				case validator.ValidationErrors:
					fields := make([]string, 0, len(e))
					for _, fe := range e {
						fields = append(fields, fe.Field())
					}
					assert.Contains(t, fields, tt.wantField)
				case *core.ValidationError:
					assert.Equal(t, tt.wantField, e.Fields[0].Field)
				default:
					t.Errorf("unexpected error type %T", err)
				}
			}
		})
	}
}
