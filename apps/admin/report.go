package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/diario/core/attendance"
)

const (
	attendanceSheet = "Attendance"
	summarySheet    = "Summary"

	markPresent = "P"
	markAbsent  = "A"
)

func (cli *commandLine) report(classID, path string) error {
	ctx := context.Background()

	class, err := cli.svc.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	sessions, err := cli.svc.ListSessions(ctx, classID)
	if err != nil {
		return err
	}

	f, err := attendanceReport(class, sessions)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = f.SaveAs(path); err != nil {
		return errors.Wrap(err, "saving report")
	}
	fmt.Fprintf(cli.out, "report of %s written to %s\n", class.Name, path)
	return nil
}

// attendanceReport lays out one row per student and one column per session date.
// Pending sessions are left blank.
func attendanceReport(class attendance.Class, sessions []attendance.SessionSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	byDate := attendance.GroupSessions(class.Lessons)
	present := make([]map[string]bool, len(sessions)) // per session: {enrollmentID: present}
	for i, s := range sessions {
		session, _ := byDate.Find(s.Date)
		if session.IsPending() {
			continue
		}
		present[i] = make(map[string]bool)
		for _, l := range session.Lessons {
			for _, id := range l.Present {
				present[i][id] = true
			}
		}
	}

	headers := []interface{}{"Student ID", "Name"}
	for _, s := range sessions {
		headers = append(headers, s.Date.Format(attendance.DateLayout))
	}
	if err := f.SetSheetRow(attendanceSheet, "A1", &headers); err != nil {
		return nil, errors.Wrap(err, "writing headers")
	}

	for r, enr := range class.Roster {
		row := []interface{}{enr.StudentID, enr.Name}
		for i := range sessions {
			switch {
			case present[i] == nil:
				row = append(row, "")
			case present[i][enr.ID]:
				row = append(row, markPresent)
			default:
				row = append(row, markAbsent)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(attendanceSheet, cell, &row); err != nil {
			return nil, errors.Wrap(err, "writing student row")
		}
	}

	// session totals
	totals := []interface{}{"", "Present"}
	for i, s := range sessions {
		if present[i] == nil {
			totals = append(totals, "")
			continue
		}
		totals = append(totals, s.Present)
	}
	cell, _ := excelize.CoordinatesToCellName(1, len(class.Roster)+2)
	if err := f.SetSheetRow(attendanceSheet, cell, &totals); err != nil {
		return nil, errors.Wrap(err, "writing totals")
	}

	if err := writeSummary(f, class); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, class attendance.Class) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "adding summary sheet")
	}
	stats := attendance.Aggregate(class.Roster, class.Lessons)
	rows := [][]interface{}{
		{"Class", class.Name},
		{"Discipline", class.Discipline},
		{"Room", class.Room},
		{"Period", class.Period},
		{"Students", len(class.Roster)},
		{"Recorded sessions", stats.RecordedSessions},
		{"Pending sessions", stats.PendingSessions},
		{"Average attendance (%)", stats.AverageAttendancePercent},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing summary")
		}
	}
	return nil
}
