package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

const defaultBatchSize = 50

// Progress is a snapshot of a batch run
type Progress struct {
	models.BatchTracking
	FailedBatches  int
	Errors         []error
	StartTime      time.Time
	LastUpdateTime time.Time
}

// Processor splits items into fixed-size batches and processes them in order.
// A failing batch is recorded and processing moves on to the next one.
type Processor struct {
	config     config.BatchConfig
	onProgress func(Progress)
	mu         sync.Mutex
}

// Option configures a Processor
type Option func(*Processor)

// WithProgressFunc registers a callback invoked after every batch
func WithProgressFunc(fn func(Progress)) Option {
	return func(p *Processor) {
		p.onProgress = fn
	}
}

// NewProcessor creates a new batch processor
func NewProcessor(cfg config.BatchConfig, opts ...Option) *Processor {
	p := &Processor{config: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BatchSize returns the effective batch size
func (p *Processor) BatchSize() int {
	if p.config.Size <= 0 {
		return defaultBatchSize
	}
	return p.config.Size
}

// Process runs fn over items batch by batch. batchNum is 1-based. The returned error is
// non-nil only when ctx was cancelled; per-batch failures are reported in Progress.
func Process[T any](ctx context.Context, p *Processor, items []T, fn func(ctx context.Context, batchNum int, batch []T) error) (Progress, error) {
	totalItems := len(items)
	batchSize := p.BatchSize()
	totalBatches := (totalItems + batchSize - 1) / batchSize

	progress := Progress{
		BatchTracking: models.BatchTracking{
			BatchSize:    batchSize,
			TotalBatches: totalBatches,
			TotalItems:   totalItems,
		},
		StartTime:      time.Now(),
		LastUpdateTime: time.Now(),
	}

	for i := 0; i < totalBatches; i++ {
		if err := ctx.Err(); err != nil {
			progress.Errors = append(progress.Errors, err)
			p.updateProgress(progress)
			return progress, err
		}

		start := i * batchSize
		end := start + batchSize
		if end > totalItems {
			end = totalItems
		}

		progress.CurrentBatch = i + 1
		if err := fn(ctx, i+1, items[start:end]); err != nil {
			progress.FailedBatches++
			progress.Errors = append(progress.Errors, fmt.Errorf("batch %d/%d: %w", i+1, totalBatches, err))
		}
		progress.ProcessedItems = end
		progress.LastUpdateTime = time.Now()
		p.updateProgress(progress)

		if p.config.BatchDelay > 0 && i < totalBatches-1 {
			select {
			case <-ctx.Done():
			case <-time.After(p.config.BatchDelay):
			}
		}
	}

	return progress, nil
}

// updateProgress hands a copy of the current progress to the registered callback
func (p *Processor) updateProgress(progress Progress) {
	if p.onProgress == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	progress.Errors = append([]error(nil), progress.Errors...)
	p.onProgress(progress)
}
