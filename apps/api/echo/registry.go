package echoapi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/diario/core/attendance"
)

// editTTL is how long an untouched edit stays open.
const editTTL = 2 * time.Hour

var nowFunc = time.Now

type (
	openEdit struct {
		editor   *attendance.Editor
		lastUsed time.Time
	}

	// editRegistry holds the editors opened through the API, keyed by handle.
	editRegistry struct {
		mu    sync.Mutex
		edits map[uuid.UUID]*openEdit
	}
)

func newEditRegistry() *editRegistry {
	return &editRegistry{edits: make(map[uuid.UUID]*openEdit)}
}

func (r *editRegistry) put(ed *attendance.Editor) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	handle := uuid.New()
	r.edits[handle] = &openEdit{editor: ed, lastUsed: nowFunc()}
	return handle
}

func (r *editRegistry) get(handle uuid.UUID) (*attendance.Editor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	edit, ok := r.edits[handle]
	if !ok {
		return nil, false
	}
	if nowFunc().Sub(edit.lastUsed) > editTTL {
		delete(r.edits, handle)
		return nil, false
	}
	edit.lastUsed = nowFunc()
	return edit.editor, true
}

func (r *editRegistry) discard(handle uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.edits[handle]
	delete(r.edits, handle)
	return ok
}

func (r *editRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edits)
}

// prune drops expired edits. r.mu must be held.
func (r *editRegistry) prune() {
	now := nowFunc()
	for handle, edit := range r.edits {
		if now.Sub(edit.lastUsed) > editTTL {
			delete(r.edits, handle)
		}
	}
}
