package services

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// resolveResult is one resolved record or its failure.
type resolveResult struct {
	key domain.CandidateKey
	rec *domain.CandidateRecord
	err error
}

// resolveIter resolves candidate keys through the adapter with bounded
// concurrency while delivering results in key order. Resolution is the
// run's dominant I/O cost; prefetching keeps the owner goroutine fed
// without giving up the ordering the early-stop checks rely on.
type resolveIter struct {
	out    <-chan chan resolveResult
	cancel context.CancelFunc
}

// newResolveIter starts resolving keys ahead of consumption, at most
// `concurrency` at a time. A concurrency below one means serial.
func newResolveIter(ctx context.Context, adapter driven.SourceAdapter, keys []domain.CandidateKey, concurrency int) *resolveIter {
	if concurrency < 1 {
		concurrency = 1
	}

	ictx, cancel := context.WithCancel(ctx)
	out := make(chan chan resolveResult, concurrency)

	go func() {
		defer close(out)
		sem := make(chan struct{}, concurrency)
		for _, key := range keys {
			select {
			case sem <- struct{}{}:
			case <-ictx.Done():
				return
			}

			ch := make(chan resolveResult, 1)
			select {
			case out <- ch:
			case <-ictx.Done():
				<-sem
				return
			}

			go func(k domain.CandidateKey) {
				defer func() { <-sem }()
				rec, err := adapter.Resolve(ictx, k)
				ch <- resolveResult{key: k, rec: rec, err: err}
			}(key)
		}
	}()

	return &resolveIter{out: out, cancel: cancel}
}

// next returns the next result in key order. ok is false once all keys are
// consumed. Cancellation surfaces as a result carrying the context error.
func (it *resolveIter) next(ctx context.Context) (resolveResult, bool) {
	select {
	case ch, open := <-it.out:
		if !open {
			return resolveResult{}, false
		}
		select {
		case res := <-ch:
			return res, true
		case <-ctx.Done():
			return resolveResult{err: ctx.Err()}, true
		}
	case <-ctx.Done():
		return resolveResult{err: ctx.Err()}, true
	}
}

// stop abandons outstanding resolution work.
func (it *resolveIter) stop() {
	it.cancel()
}
