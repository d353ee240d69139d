package attendance

import (
	"sync"
	"time"
)

// Editor is the mutation surface of one open session's matrix.
// It holds no state beyond its matrix; concurrent writes are last-write-wins per cell.
type Editor struct {
	mu     sync.Mutex
	matrix *Matrix
	class  Class
}

// NewEditor opens an editor over m. class is only kept for reporting purposes.
func NewEditor(class Class, m *Matrix) *Editor {
	return &Editor{class: class, matrix: m}
}

// Toggle flips one cell and returns its new value.
func (ed *Editor) Toggle(enrollmentID, lessonID string) (bool, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	present, ok := ed.matrix.Get(enrollmentID, lessonID)
	if !ok {
		return false, ErrUnknownCell
	}
	return !present, ed.matrix.set(enrollmentID, lessonID, !present)
}

// Set writes one cell.
func (ed *Editor) Set(enrollmentID, lessonID string, present bool) error {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.matrix.set(enrollmentID, lessonID, present)
}

// SetAll overwrites every cell of the session, discarding any previous individual edit.
func (ed *Editor) SetAll(present bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.matrix.setAll(present)
}

// Snapshot returns a deep copy of the matrix cells.
func (ed *Editor) Snapshot() map[string]map[string]bool {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.matrix.Snapshot()
}

// View returns a read-only rendition of the matrix, i.e. for API responses.
func (ed *Editor) View() MatrixView {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	m := ed.matrix
	view := MatrixView{
		ClassID: ed.class.ID,
		Date:    m.session.Date,
		Mode:    m.mode,
		Lessons: make([]LessonView, 0, len(m.session.Lessons)),
		Rows:    make([]RowView, 0, len(m.roster)),
	}
	for _, l := range m.session.Lessons {
		view.Lessons = append(view.Lessons, LessonView{ID: l.ID, Start: l.Start, End: l.End, Sequence: l.Sequence, Status: l.Status})
	}
	for _, enr := range m.roster {
		row := RowView{Enrollment: enr, Present: make(map[string]bool, len(m.session.Lessons))}
		for lessonID, v := range m.cells[enr.ID] {
			row.Present[lessonID] = v
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// Class returns the class the editor was opened for.
func (ed *Editor) Class() Class { return ed.class }

// Session returns a copy of the session being edited, as it was when opened or last submitted.
func (ed *Editor) Session() Session {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return copySession(ed.matrix.session)
}

// Mode returns the mode the matrix was built under.
func (ed *Editor) Mode() Mode { return ed.matrix.mode }

type (
	LessonView struct {
		ID       string       `json:"id"`
		Start    string       `json:"start"`
		End      string       `json:"end"`
		Sequence int          `json:"sequence"`
		Status   LessonStatus `json:"status"`
	}

	RowView struct {
		Enrollment
		Present map[string]bool `json:"present"` // {lessonID: present}
	}

	MatrixView struct {
		ClassID string       `json:"class_id"`
		Date    time.Time    `json:"date"`
		Mode    Mode         `json:"mode"`
		Lessons []LessonView `json:"lessons"`
		Rows    []RowView    `json:"rows"`
	}
)
