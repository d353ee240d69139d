package attendance

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// AmendmentDiff returns a unified diff between the presence stored before an amendment
// and the facts of the amendment, one line per student. It is empty when nothing changed.
func AmendmentDiff(before Session, roster []Enrollment, facts []Fact) (string, error) {
	stored := make(map[string]bool)
	for _, l := range before.Lessons {
		for _, enrID := range l.Present {
			stored[enrID] = true
		}
	}
	amended := make(map[string]bool, len(facts))
	for _, f := range facts {
		amended[f.EnrollmentID] = f.Present
	}

	a := make([]string, 0, len(roster))
	b := make([]string, 0, len(roster))
	for _, enr := range roster {
		a = append(a, presenceLine(enr, stored[enr.ID]))
		b = append(b, presenceLine(enr, amended[enr.ID]))
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "recorded",
		ToFile:   "amended",
		Context:  0,
	})
}

func presenceLine(enr Enrollment, present bool) string {
	mark := "absent"
	if present {
		mark = "present"
	}
	return fmt.Sprintf("%s (%s): %s\n", enr.Name, enr.StudentID, mark)
}
