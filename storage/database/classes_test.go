package database

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/storage/database/inmem"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}

func TestDecodeClasses(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name: "valid",
			input: `[{"id": "c1", "name": "Math", "roster": [{"id": "E1", "student_id": "S1", "name": "Ann"}],
				"lessons": [{"id": "L1", "date": "2024-03-20", "start": "08:00", "end": "08:50", "sequence": 1}]}]`,
		},
		{name: "not json", input: `classes`, wantErr: true},
		{name: "bad date", input: `[{"name": "Math", "lessons": [{"date": "20/03/2024", "start": "08:00", "end": "08:50"}]}]`, wantErr: true},
		{name: "blank name", input: `[{"name": " "}]`, wantErr: true},
		{name: "bad time", input: `[{"name": "Math", "lessons": [{"date": "2024-03-20", "start": "8h", "end": "08:50"}]}]`, wantErr: true},
		{
			name: "duplicate enrollment",
			input: `[{"name": "Math", "roster": [{"id": "E1", "student_id": "S1", "name": "Ann"},
				{"id": "E1", "student_id": "S2", "name": "Bob"}]}]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classes, err := DecodeClasses(strings.NewReader(tt.input), validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, classes, 1)
			assert.Equal(t, attendance.StatusScheduled, classes[0].Lessons[0].Status)
			assert.Equal(t, "2024-03-20", classes[0].Lessons[0].DateKey())
		})
	}
}

func TestLoadClasses_sample(t *testing.T) {
	classes, err := LoadClasses("../../config/classes.sample.json", newValidator())
	require.NoError(t, err)
	require.Len(t, classes, 1)

	class := classes[0]
	assert.NotEmpty(t, class.ID, "missing ids are generated")
	assert.Len(t, class.Roster, 3)
	assert.Len(t, class.Lessons, 3)
	for _, l := range class.Lessons {
		assert.NotEmpty(t, l.ID)
		assert.Nil(t, l.Present)
	}

	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewClassRepository(db)
	saved, err := SaveClasses(context.Background(), repo, classes)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	got, err := repo.GetClass(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math-9A", got.Name)
}
