package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints a running tally of batch outcomes on a single line.
// Batch workers share one Progress.
type Progress struct {
	mu sync.Mutex
	w  io.Writer

	pending  int
	embedded int
	failed   int

	every    int
	printed  int
	began    time.Time
	finished bool
}

// NewProgress starts the clock for pending technicians. A line is printed
// whenever at least every more technicians have been accounted for.
func NewProgress(w io.Writer, pending, every int) *Progress {
	return &Progress{
		w:       w,
		pending: pending,
		every:   max(every, 1),
		began:   time.Now(),
	}
}

// Record accounts for one finished batch.
func (p *Progress) Record(embedded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}

	p.embedded += embedded
	p.failed += failed
	if p.done()-p.printed >= p.every {
		p.print()
	}
}

// Finish prints the final tally and ends the line. Later calls do nothing.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.print()
	fmt.Fprintln(p.w)
}

// Counts returns the technicians embedded and failed so far.
func (p *Progress) Counts() (embedded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedded, p.failed
}

// Elapsed is the time since NewProgress.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.began)
}

func (p *Progress) done() int {
	return min(p.embedded+p.failed, p.pending)
}

// print must be called with mu held.
func (p *Progress) print() {
	done := p.done()
	p.printed = done

	perSecond := 0.0
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		perSecond = float64(done) / secs
	}
	eta := "-"
	if left := p.pending - done; left > 0 && perSecond > 0 {
		eta = time.Duration(float64(left) / perSecond * float64(time.Second)).Round(time.Second).String()
	}

	fmt.Fprintf(p.w, "\rreembed %d/%d: %d embedded, %d failed, %.1f/s, eta %s",
		done, p.pending, p.embedded, p.failed, perSecond, eta)
}
