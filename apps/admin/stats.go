package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
	"github.com/trezcool/diario/storage/database"
)

func (cli *commandLine) stats(classID string) error {
	ctx := context.Background()

	class, err := cli.svc.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	stats := attendance.Aggregate(class.Roster, class.Lessons)

	fmt.Fprintf(cli.out, "%s (%s)\n", class.Name, class.ID)
	fmt.Fprintf(cli.out, "  students:           %d\n", len(class.Roster))
	fmt.Fprintf(cli.out, "  recorded sessions:  %d\n", stats.RecordedSessions)
	fmt.Fprintf(cli.out, "  pending sessions:   %d\n", stats.PendingSessions)
	fmt.Fprintf(cli.out, "  average attendance: %d%%\n", stats.AverageAttendancePercent)
	return nil
}

func importFile(saver attendance.ClassSaver, validate *validator.Validate, path string, out io.Writer) error {
	classes, err := database.LoadClasses(path, validate)
	if err != nil {
		if vErr, ok := core.AsValidationError(err); ok {
			for fld, msg := range vErr.FieldMap() {
				fmt.Fprintf(out, "  %s: %s\n", fld, msg)
			}
		}
		return err
	}
	saved, err := database.SaveClasses(context.Background(), saver, classes)
	for _, c := range saved {
		fmt.Fprintf(out, "imported %s (%s): %d students, %d lessons\n", c.Name, c.ID, len(c.Roster), len(c.Lessons))
	}
	return errors.Wrap(err, "importing classes")
}
