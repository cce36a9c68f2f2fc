package mail

import (
	"context"
	"sync/atomic"
)

const maxPoolSize = 128

// Pooled bounds the number of concurrent deliveries to the wrapped Mailer.
type Pooled struct {
	next     Mailer
	sem      chan struct{}
	inFlight atomic.Int64
}

// NewPooled wraps next with at least one and at most 128 delivery slots.
func NewPooled(next Mailer, size int) *Pooled {
	if next == nil {
		panic("mail.NewPooled: nil mailer")
	}
	if size <= 0 {
		size = 1
	}
	if size > maxPoolSize {
		size = maxPoolSize
	}
	return &Pooled{next: next, sem: make(chan struct{}, size)}
}

// Send waits for a free slot and delivers m. It returns ctx.Err() if the
// wait is aborted.
func (p *Pooled) Send(ctx context.Context, m Message) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		<-p.sem
	}()
	return p.next.Send(ctx, m)
}

// InFlight returns the number of deliveries in progress.
func (p *Pooled) InFlight() int64 { return p.inFlight.Load() }
