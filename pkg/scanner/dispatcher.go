// Package scanner decides which rules run for each intercepted response and
// runs them off the traffic path.
package scanner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/rules"
	"github.com/nxneeraj/hx-warden/pkg/store"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

type scanKind int

const (
	scanNone     scanKind = iota
	scanDocument          // header and library rules
	scanScript            // library rules only
)

// classify maps a Content-Type value to the rules that apply to it.
func classify(contentType string) scanKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"):
		return scanDocument
	case strings.Contains(ct, "javascript"):
		return scanScript
	default:
		return scanNone
	}
}

// Scannable reports whether responses with this Content-Type are scanned.
func Scannable(contentType string) bool {
	return classify(contentType) != scanNone
}

// Options tunes how scans are scheduled.
type Options struct {
	// Workers bounds concurrent scans. Zero starts one goroutine per
	// qualifying response with no bound.
	Workers int
	// QueueSize is the number of scans that may wait for a free worker.
	// When the queue is full further responses are not scanned.
	QueueSize int
}

// Dispatcher receives responses from the interception layer and scans them
// in the background, feeding new findings into the store.
type Dispatcher struct {
	headers   rules.Engine
	libraries rules.Engine
	store     *store.FindingsStore
	log       *zap.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job // nil in unbounded mode
	wg     sync.WaitGroup

	scanned atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher wires the rule engines to the store. Workers are started
// immediately when opts.Workers > 0.
func NewDispatcher(headers, libraries rules.Engine, s *store.FindingsStore, log *zap.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		headers:   headers,
		libraries: libraries,
		store:     s,
		log:       log,
	}

	if opts.Workers > 0 {
		queue := opts.QueueSize
		if queue < 0 {
			queue = 0
		}
		d.jobs = make(chan job, queue)
		for i := 0; i < opts.Workers; i++ {
			d.wg.Add(1)
			go func(id int) {
				defer d.wg.Done()
				worker(id, d.jobs, d.scan, d.log)
			}(i + 1)
		}
	}

	return d
}

// HandleResponseReceived classifies the response and schedules a scan. It
// never waits for the scan and always lets the traffic continue unmodified.
func (d *Dispatcher) HandleResponseReceived(ex intercept.Exchange) (action intercept.Action) {
	action = intercept.Continue
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Error scheduling scan", zap.String("url", ex.URL), zap.Any("panic", r))
		}
	}()

	if ex.Response == nil {
		return action
	}
	contentType, _ := ex.Response.HeaderValue("Content-Type")
	kind := classify(contentType)
	if kind == scanNone {
		return action
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return action
	}

	j := job{exchange: ex, kind: kind}
	if d.jobs == nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.scan(j)
		}()
		return action
	}

	select {
	case d.jobs <- j:
	default:
		d.dropped.Add(1)
		d.log.Warn("Scan queue full, response not scanned", zap.String("url", ex.URL))
	}
	return action
}

// scan runs the rules for one response. Any panic stops this scan only.
func (d *Dispatcher) scan(j job) {
	url := j.exchange.URL
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Error scanning response", zap.String("url", url), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	defer d.scanned.Add(1)

	resp := j.exchange.Response
	if j.kind == scanDocument {
		d.record(d.headers.Evaluate(url, resp))
	}
	d.record(d.libraries.Evaluate(url, resp))
}

func (d *Dispatcher) record(findings []types.Finding) {
	for _, f := range findings {
		d.recordOne(f)
	}
}

// recordOne stores f. A failing store listener is logged and does not affect
// the remaining findings of the response.
func (d *Dispatcher) recordOne(f types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Error recording finding",
				zap.String("url", f.URL),
				zap.String("title", f.Title),
				zap.Any("panic", r),
			)
		}
	}()
	if d.store.Add(f) {
		d.log.Info("Found issue",
			zap.String("severity", f.Severity.Label()),
			zap.String("title", f.Title),
			zap.String("url", f.URL),
		)
	}
}

// Shutdown stops accepting responses and waits until every queued and
// running scan has finished, or ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		if d.jobs != nil {
			close(d.jobs)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scanned is the number of scans that ran to completion or failure.
func (d *Dispatcher) Scanned() int64 { return d.scanned.Load() }

// Dropped is the number of responses skipped because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }
