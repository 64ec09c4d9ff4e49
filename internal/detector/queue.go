package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

type job struct {
	ctx    context.Context
	img    image.Image
	result chan<- result
}

type result struct {
	raws []detection.Raw
	err  error
}

// queued runs every Detect call on one worker goroutine.
type queued struct {
	inner Detector
	jobs  chan job
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// Serialize returns d unchanged when it is safe for concurrent use, otherwise
// a Detector that funnels calls through a single worker. Close stops the
// worker and then closes d.
func Serialize(d Detector) Detector {
	if IsConcurrentSafe(d) {
		return d
	}
	q := &queued{
		inner: d,
		jobs:  make(chan job),
		done:  make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *queued) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case j := <-q.jobs:
			if err := j.ctx.Err(); err != nil {
				j.result <- result{err: fmt.Errorf("%w: %w", detection.ErrInferenceFailure, err)}
				continue
			}
			raws, err := q.inner.Detect(j.ctx, j.img)
			j.result <- result{raws: raws, err: err}
		}
	}
}

// Detect waits for the worker, honouring ctx while queued and while running.
func (q *queued) Detect(ctx context.Context, img image.Image) ([]detection.Raw, error) {
	out := make(chan result, 1)
	select {
	case q.jobs <- job{ctx: ctx, img: img, result: out}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, ctx.Err())
	case <-q.done:
		return nil, fmt.Errorf("%w: detector closed", detection.ErrDetectorUnavailable)
	}

	select {
	case r := <-out:
		return r.raws, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, ctx.Err())
	}
}

// Close stops the worker, waits for an in-flight call, and closes the
// wrapped detector. Further calls return the first result.
func (q *queued) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.wg.Wait()
		q.closeErr = q.inner.Close()
	})
	return q.closeErr
}
