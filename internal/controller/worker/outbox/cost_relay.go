// Package outbox relays cost events from the transactional outbox to
// Kafka.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okushnikov/structured-query/internal/infrastructure"
	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
)

type CostRelay struct {
	events usecase.CostEventsUseCase
	sender infrastructure.EventsSender
	logger logger.Interface

	pollInterval        time.Duration
	cleanupInterval     time.Duration
	markFailedInterval  time.Duration
	processBatchTimeout time.Duration
	batchSize           int
	maxRetries          int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	events usecase.CostEventsUseCase,
	sender infrastructure.EventsSender,
	l logger.Interface,
	pollInterval time.Duration,
	cleanupInterval time.Duration,
	markFailedInterval time.Duration,
	processBatchTimeout time.Duration,
	batchSize int,
	maxRetries int,
) *CostRelay {
	return &CostRelay{
		events:              events,
		sender:              sender,
		logger:              l,
		pollInterval:        pollInterval,
		cleanupInterval:     cleanupInterval,
		markFailedInterval:  markFailedInterval,
		processBatchTimeout: processBatchTimeout,
		batchSize:           batchSize,
		maxRetries:          maxRetries,
	}
}

func (r *CostRelay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("CostRelay - Start - worker already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	// 1. ship pending batches to kafka
	r.worker(r.pollInterval, func() {
		batchCtx, batchCancel := context.WithTimeout(r.ctx, r.processBatchTimeout)
		r.processEventsBatch(batchCtx)
		batchCancel()
	})

	// 2. give up on events that keep failing
	r.worker(r.markFailedInterval, func() {
		err := r.events.MarkMaxRetriesAsFailed(r.ctx, r.maxRetries)
		if err != nil {
			r.logger.Error(err, "CostRelay - Start - worker - r.events.MarkMaxRetriesAsFailed")
		}
	})

	// 3. purge relayed and failed rows
	r.worker(r.cleanupInterval, func() {
		err := r.events.Cleanup(r.ctx)
		if err != nil {
			r.logger.Error(err, "CostRelay - Start - worker - r.events.Cleanup")
		}
	})

	return nil
}

func (r *CostRelay) processEventsBatch(ctx context.Context) {
	events, err := r.events.GetPendingEvents(ctx, r.maxRetries, r.batchSize)
	if err != nil {
		r.logger.Error(err, "CostRelay - processEventsBatch - r.events.GetPendingEvents")

		return
	}
	if len(events) == 0 {
		return
	}

	err = r.events.MarkAsProcessingBatch(ctx, events)
	if err != nil {
		r.logger.Error(err, "CostRelay - processEventsBatch - r.events.MarkAsProcessingBatch")

		return
	}

	err = r.sender.SendEvents(ctx, events)
	if err != nil {
		r.logger.Error(err, "CostRelay - processEventsBatch - r.sender.SendEvents")

		incErr := r.events.IncrementRetryCountBatch(ctx, events)
		if incErr != nil {
			r.logger.Error(incErr, "CostRelay - processEventsBatch - r.events.IncrementRetryCountBatch")
		}
		return
	}

	err = r.events.MarkAsProcessedBatch(ctx, events)
	if err != nil {
		r.logger.Error(err, "CostRelay - processEventsBatch - r.events.MarkAsProcessedBatch")

		return
	}
}

func (r *CostRelay) worker(interval time.Duration, task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (r *CostRelay) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		r.sender.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
