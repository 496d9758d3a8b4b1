package viewstate

import "context"

// Pending is the future returned by asynchronous transitions. It completes
// once the request's result, success or failure, has been applied.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed when the result has been applied.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the result is applied or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
