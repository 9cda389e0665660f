package enrich

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dberest/veridict/internal/logging"
)

// Dispatcher hands analysis tasks to a fixed worker pool and writes results
// into the cache. Submitting never blocks the caller: with a saturated queue
// the entry resolves immediately as unavailable.
type Dispatcher struct {
	cache    *Cache
	analyzer Analyzer
	logger   logging.Logger

	tasks  chan task
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type task struct {
	id         string
	text       string
	label      string
	confidence float64
}

// NewDispatcher starts workers goroutines consuming the submission queue.
func NewDispatcher(cache *Cache, analyzer Analyzer, workers int, logger logging.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cache:    cache,
		analyzer: analyzer,
		logger:   logger,
		tasks:    make(chan task, 64),
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	return d
}

// Submit queues a secondary analysis and returns its correlation id. The
// entry is pending until a worker resolves it.
func (d *Dispatcher) Submit(text, label string, confidence float64) string {
	id := uuid.New().String()
	d.cache.Begin(id)

	select {
	case d.tasks <- task{id: id, text: text, label: label, confidence: confidence}:
	default:
		d.logger.Warn("enrichment queue full, skipping analysis",
			logging.Field{Key: "request_id", Value: id})
		d.cache.Resolve(id, &Analysis{Available: false})
	}
	return id
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}
			d.run(ctx, t)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, t task) {
	a, err := d.analyzer.Analyze(ctx, t.text, t.label, t.confidence)
	if err != nil {
		d.logger.Warn("enrichment failed",
			logging.Field{Key: "request_id", Value: t.id},
			logging.Field{Key: "error", Value: err.Error()})
		a = &Analysis{Available: false}
	}
	d.cache.Resolve(t.id, a)
	d.logger.Info("enrichment stored", logging.Field{Key: "request_id", Value: t.id})
}

// Close stops the workers. In-flight analyses are abandoned; their entries
// stay pending.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
