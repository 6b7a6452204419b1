package debounce

import (
	"context"
	"time"
)

// Collect blocks until the queue has received at least one batch and then
// quiesced:
//
//  1. Block until one batch arrives; append its elements to the accumulator.
//  2. Non-blocking drain of any batches already queued.
//  3. Sleep debounceMs.
//  4. Non-blocking drain again. If nothing was drained, return the
//     accumulator. Otherwise go to step 3.
//
// The accumulator may contain duplicates and non-canonical paths;
// downstream (the orchestrator) canonicalizes and de-duplicates. Collect returns
// ctx.Err() if ctx is cancelled while blocked on the initial Take or while
// sleeping — this is the cooperative-cancellation path the orchestrator
// uses on shutdown.
func Collect(ctx context.Context, q *Queue, debounce time.Duration) ([]string, error) {
	first, ok := takeCtx(ctx, q)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, nil // queue closed with nothing pending
	}

	var acc []string
	acc = append(acc, first...)
	for _, batch := range q.DrainNonBlocking() {
		acc = append(acc, batch...)
	}

	for {
		select {
		case <-ctx.Done():
			return acc, ctx.Err()
		case <-time.After(debounce):
		}
		drained := q.DrainNonBlocking()
		if len(drained) == 0 {
			return acc, nil
		}
		for _, batch := range drained {
			acc = append(acc, batch...)
		}
	}
}

// takeCtx blocks on q.Take but also observes ctx cancellation. Queue.Take
// has no native cancellation, so the wait is run on a goroutine and raced
// against ctx.Done(); on cancellation the eventual Take result (if any) is
// simply discarded by the orchestrator's shutdown path, which never reads
// from the queue again.
func takeCtx(ctx context.Context, q *Queue) ([]string, bool) {
	type result struct {
		batch []string
		ok    bool
	}
	done := make(chan result, 1)
	go func() {
		batch, ok := q.Take()
		done <- result{batch, ok}
	}()

	select {
	case r := <-done:
		return r.batch, r.ok
	case <-ctx.Done():
		return nil, false
	}
}
