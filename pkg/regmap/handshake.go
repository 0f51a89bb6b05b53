package regmap

// InitTracker tracks the prime requests of a connection and reports
// initialization exactly once, when all of them completed. Failed requests
// count as completed.
type InitTracker struct {
	pending    map[uint64]struct{}
	started    bool
	finished   bool
	onFinished func()
}

func NewInitTracker(onFinished func()) *InitTracker {
	return &InitTracker{
		pending:    make(map[uint64]struct{}),
		onFinished: onFinished,
	}
}

func (t *InitTracker) Add(id uint64) {
	if t.finished {
		return
	}
	t.pending[id] = struct{}{}
}

// Start marks the end of prime request issuance. With nothing pending the
// tracker finishes immediately.
func (t *InitTracker) Start() {
	t.started = true
	t.verify()
}

func (t *InitTracker) Done(id uint64) {
	if _, ok := t.pending[id]; !ok {
		return
	}
	delete(t.pending, id)
	t.verify()
}

func (t *InitTracker) Pending() int {
	return len(t.pending)
}

func (t *InitTracker) Finished() bool {
	return t.finished
}

func (t *InitTracker) verify() {
	if t.finished || !t.started || len(t.pending) > 0 {
		return
	}
	t.finished = true
	if t.onFinished != nil {
		t.onFinished()
	}
}
