package panel

import (
	"image"
	"sync"
)

// Op is one call made to a Recorder.
type Op struct {
	Kind  Kind
	Rect  image.Rectangle
	Frame *image.Gray
}

// Recorder is an in-memory Panel that keeps every update.
type Recorder struct {
	mu      sync.Mutex
	bounds  image.Rectangle
	Ops     []Op
	Sleeps  int
	Closed  bool
	FailErr error
}

func NewRecorder(bounds image.Rectangle) *Recorder {
	return &Recorder{bounds: bounds}
}

func (r *Recorder) Bounds() image.Rectangle { return r.bounds }

func (r *Recorder) Full(img *image.Gray) error {
	return r.record(KindFull, img.Rect, img)
}

func (r *Recorder) Partial(rect image.Rectangle, img *image.Gray) error {
	return r.record(KindPartial, rect, img)
}

func (r *Recorder) record(k Kind, rect image.Rectangle, img *image.Gray) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailErr != nil {
		return r.FailErr
	}
	r.Ops = append(r.Ops, Op{Kind: k, Rect: rect, Frame: cloneGray(img)})
	return nil
}

func (r *Recorder) Sleep() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sleeps++
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

// Snapshot returns a copy of the recorded operations.
func (r *Recorder) Snapshot() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.Ops...)
}

// Reset drops recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ops = nil
}
