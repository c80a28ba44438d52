package panel

import (
	"context"
	"image"
	"time"

	"inkhat/internal/logging"
	"inkhat/internal/metrics"
)

// Kind is how an update reached the panel.
type Kind string

const (
	KindFull    Kind = "full"
	KindPartial Kind = "partial"
	KindSkipped Kind = "skipped"
)

// Policy controls when partial updates are promoted to full refreshes.
type Policy struct {
	// MaxPartials consecutive partial refreshes are allowed before a full one.
	MaxPartials int
	// FullEvery forces a full refresh once this much time has passed since the last.
	FullEvery time.Duration
	// SleepBetween puts the panel to sleep after each update.
	SleepBetween bool
}

// Refresher tracks what the panel currently shows and decides between full
// and partial refreshes.
type Refresher struct {
	panel   Panel
	policy  Policy
	now     func() time.Time
	log     *logging.StructuredLogger
	metrics *metrics.Collector

	shown    *image.Gray
	partials int
	lastFull time.Time
}

func NewRefresher(p Panel, policy Policy, now func() time.Time, log *logging.StructuredLogger, m *metrics.Collector) *Refresher {
	if now == nil {
		now = time.Now
	}
	return &Refresher{panel: p, policy: policy, now: now, log: log, metrics: m}
}

// Push sends frame to the panel. full requests a full refresh; otherwise only
// the changed pixels inside window are sent.
func (r *Refresher) Push(ctx context.Context, frame *image.Gray, window image.Rectangle, full bool) (Kind, error) {
	now := r.now()
	if !full && r.needsFull(now) {
		full = true
	}

	kind := KindFull
	rect := frame.Rect
	if !full {
		diff, ok := diffRect(r.shown, frame, window)
		if !ok {
			r.metrics.RecordRefresh(string(KindSkipped))
			return KindSkipped, nil
		}
		kind = KindPartial
		rect = alignRect(diff, frame.Rect)
	}

	timer := r.metrics.RefreshTimer(string(kind))
	var err error
	if kind == KindFull {
		err = r.panel.Full(frame)
	} else {
		err = r.panel.Partial(rect, frame)
	}
	timer.ObserveDuration()
	if err != nil {
		r.log.Error(ctx, "[PANEL_ERROR] refresh failed", logging.Fields{"kind": kind, "rect": rect.String()}, err)
		return kind, err
	}
	r.metrics.RecordRefresh(string(kind))
	r.log.Debug(ctx, "[PANEL] refresh", logging.Fields{"kind": kind, "rect": rect.String(), "partials": r.partials})

	if kind == KindFull {
		r.partials = 0
		r.lastFull = now
	} else {
		r.partials++
	}
	r.shown = cloneGray(frame)

	if r.policy.SleepBetween {
		if err := r.panel.Sleep(); err != nil {
			r.log.Warn(ctx, "[PANEL] sleep failed", logging.Fields{"error": err.Error()})
		}
	}
	return kind, nil
}

func (r *Refresher) needsFull(now time.Time) bool {
	if r.shown == nil {
		return true
	}
	if r.policy.MaxPartials > 0 && r.partials >= r.policy.MaxPartials {
		return true
	}
	if r.policy.FullEvery > 0 && now.Sub(r.lastFull) >= r.policy.FullEvery {
		return true
	}
	return false
}

// Partials is the number of partial refreshes since the last full one.
func (r *Refresher) Partials() int {
	return r.partials
}
