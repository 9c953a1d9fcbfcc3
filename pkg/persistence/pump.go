package persistence

import "context"

// Pump drives a ChangeQueue's drain loop off its signal channel, the
// analogue of the original's DataSourceChangeIntegrator
// (gui/datasourcechangeintegrator.h), which pumped ResultIntegrator off a
// Qt signal/slot on the UI thread. Callers without an event loop of their
// own — a CLI command, a test wanting deterministic single-threaded
// draining — run a Pump instead.
type Pump struct {
	queue *ChangeQueue
}

// NewPump constructs a pump bound to queue.
func NewPump(queue *ChangeQueue) *Pump {
	return &Pump{queue: queue}
}

// Run blocks, calling queue.ApplyChanges every time the signal fires, until
// ctx is canceled. It also drains once up front, in case changes were
// buffered before Run started listening.
func (p *Pump) Run(ctx context.Context) {
	p.queue.ApplyChanges()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.queue.Signal():
			p.queue.ApplyChanges()
		}
	}
}

// RunOnce drains exactly one signal firing (or returns immediately if
// ctx is already done), useful in tests that want to step the pump
// deterministically rather than run it in a background goroutine.
func (p *Pump) RunOnce(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-p.queue.Signal():
		p.queue.ApplyChanges()
	}
}
