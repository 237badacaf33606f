package queue

import "sync"

// Debouncer keeps the most recent value of a rapidly changing input. Each
// Push returns a sequence number; the caller arms a timer carrying it and
// calls Fire when the timer elapses. Only the newest sequence emits.
type Debouncer struct {
	mu      sync.Mutex
	seq     uint64
	value   string
	pending bool
	stopped bool
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Push records v as the latest value and supersedes any pending emission.
func (d *Debouncer) Push(v string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.value = v
	d.pending = !d.stopped
	return d.seq
}

// Fire emits the latest value if seq is still current. A value is emitted
// at most once per Push.
func (d *Debouncer) Fire(seq uint64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.pending || seq != d.seq {
		return "", false
	}
	d.pending = false
	return d.value, true
}

// Stop cancels any pending emission. Later Pushes never emit.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
}

// Pending reports whether a value is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
