package usecase

import "context"

// sema is a counting semaphore bounding concurrent per-short sub-tasks.
// Extraction and encoding are CPU and disk bound; unbounded parallelism
// exhausts both.
type sema struct {
	ch chan struct{}
}

func newSema(capacity int) *sema {
	if capacity < 1 {
		capacity = 1
	}
	return &sema{ch: make(chan struct{}, capacity)}
}

func (s *sema) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *sema) release() {
	<-s.ch
}
