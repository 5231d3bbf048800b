package verify

import "context"

// semaphore caps concurrent requests to one provider. It is owned by a
// Session, never shared process-wide, so concurrent documents and test
// runs cannot interfere with each other.
type semaphore chan struct{}

func newSemaphore(n int) semaphore {
	if n < 1 {
		n = 1
	}
	return make(semaphore, n)
}

func (s semaphore) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s semaphore) release() {
	<-s
}
