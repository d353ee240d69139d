package attendance

import "fmt"

type cells map[string]map[string]bool // {enrollmentID: {lessonID: present}}

// Matrix is the transient student x lesson presence grid of one open session.
type Matrix struct {
	mode    Mode
	session Session
	roster  []Enrollment
	cells   cells
}

// BuildMatrix seeds the matrix of a session.
// In ModeNew every cell is absent. In ModeAmend every lesson is seeded with its stored presence;
// a lesson without stored data borrows the first sibling that has some,
// and when no lesson of the session has any, the session is seeded as in ModeNew.
// Both fallbacks are reported as anomalies.
func BuildMatrix(session Session, roster []Enrollment, mode Mode) (*Matrix, []DataAnomaly, error) {
	if len(session.Lessons) == 0 {
		return nil, nil, newConfigurationError("session of %s has no lessons", session.DateKey())
	}
	if err := checkMode(session, mode); err != nil {
		return nil, nil, err
	}

	m := &Matrix{
		mode:    mode,
		session: copySession(session),
		roster:  append([]Enrollment(nil), roster...),
		cells:   make(cells, len(roster)),
	}
	for _, enr := range roster {
		row := make(map[string]bool, len(session.Lessons))
		for _, l := range session.Lessons {
			row[l.ID] = false
		}
		m.cells[enr.ID] = row
	}

	anomalies := duplicateSequences(session)
	if mode == ModeAmend {
		anomalies = append(anomalies, m.seedStored()...)
	}
	return m, anomalies, nil
}

func checkMode(session Session, mode Mode) error {
	recorded := !session.IsPending()
	switch {
	case mode == ModeNew && recorded:
		return newConfigurationError("session of %s is already recorded; open it for amendment", session.DateKey())
	case mode == ModeAmend && !recorded:
		return newConfigurationError("session of %s has not been recorded yet", session.DateKey())
	}
	return nil
}

func (m *Matrix) seedStored() []DataAnomaly {
	var source *Lesson
	for i := range m.session.Lessons {
		if m.session.Lessons[i].HasStoredPresence() {
			source = &m.session.Lessons[i]
			break
		}
	}
	if source == nil {
		return []DataAnomaly{{
			Kind:   AnomalyNoStoredPresence,
			Date:   m.session.Date,
			Detail: "no lesson of the session has stored presence; seeding everyone as absent",
		}}
	}

	var anomalies []DataAnomaly
	for _, l := range m.session.Lessons {
		present := l.Present
		if !l.HasStoredPresence() {
			present = source.Present
			anomalies = append(anomalies, DataAnomaly{
				Kind:     AnomalySiblingFallback,
				Date:     m.session.Date,
				LessonID: l.ID,
				Detail:   fmt.Sprintf("lesson %s has no stored presence; using lesson %s", l.ID, source.ID),
			})
		}
		for _, enrID := range present {
			// enrollments no longer in the roster are ignored
			if row, ok := m.cells[enrID]; ok {
				row[l.ID] = true
			}
		}
	}
	return anomalies
}

func (m *Matrix) Mode() Mode { return m.mode }

// Session returns a copy of the session the matrix was built for.
func (m *Matrix) Session() Session { return copySession(m.session) }

// Roster returns a copy of the roster the matrix was built for.
func (m *Matrix) Roster() []Enrollment { return append([]Enrollment(nil), m.roster...) }

// Get returns a cell's value; ok is false when the cell is not part of the matrix.
func (m *Matrix) Get(enrollmentID, lessonID string) (present, ok bool) {
	row, ok := m.cells[enrollmentID]
	if !ok {
		return false, false
	}
	present, ok = row[lessonID]
	return present, ok
}

// Snapshot returns a deep copy of the cells.
func (m *Matrix) Snapshot() map[string]map[string]bool {
	snap := make(map[string]map[string]bool, len(m.cells))
	for enrID, row := range m.cells {
		r := make(map[string]bool, len(row))
		for lessonID, v := range row {
			r[lessonID] = v
		}
		snap[enrID] = r
	}
	return snap
}

// PresentIn returns the enrollment ids present in the given lesson, in roster order.
func (m *Matrix) PresentIn(lessonID string) []string {
	ids := make([]string, 0)
	for _, enr := range m.roster {
		if m.cells[enr.ID][lessonID] {
			ids = append(ids, enr.ID)
		}
	}
	return ids
}

func (m *Matrix) set(enrollmentID, lessonID string, present bool) error {
	row, ok := m.cells[enrollmentID]
	if !ok {
		return ErrUnknownCell
	}
	if _, ok = row[lessonID]; !ok {
		return ErrUnknownCell
	}
	row[lessonID] = present
	return nil
}

func (m *Matrix) setAll(present bool) {
	for _, row := range m.cells {
		for lessonID := range row {
			row[lessonID] = present
		}
	}
}

func copySession(s Session) Session {
	lessons := make([]Lesson, len(s.Lessons))
	for i, l := range s.Lessons {
		if l.Present != nil {
			l.Present = append(make([]string, 0, len(l.Present)), l.Present...)
		}
		lessons[i] = l
	}
	return Session{Date: s.Date, Lessons: lessons}
}
