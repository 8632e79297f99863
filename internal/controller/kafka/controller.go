// Package kafka consumes relayed cost events and folds them into the
// per-user usage aggregates.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okushnikov/structured-query/internal/entity"
	infrakafka "github.com/okushnikov/structured-query/internal/infrastructure/kafka"
	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
)

type UsageController struct {
	usage  usecase.UsageUseCase
	ec     *infrakafka.EventConsumer
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	usage usecase.UsageUseCase,
	ec *infrakafka.EventConsumer,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
	workers int,
) *UsageController {
	return &UsageController{
		usage:          usage,
		ec:             ec,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
		workers:        workers,
	}
}

func (c *UsageController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("UsageController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	tasks := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				event, err := c.ec.ReadEvent(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "UsageController - Start - c.ec.ReadEvent")
					}
					continue
				}

				select {
				case tasks <- event:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

func (c *UsageController) recordEvent(ctx context.Context, event kafka.Message) error {
	var payload entity.CostEventPayload
	if err := json.Unmarshal(event.Value, &payload); err != nil {
		return fmt.Errorf("UsageController - recordEvent - json.Unmarshal: %w", err)
	}

	if err := c.usage.Record(ctx, payload); err != nil {
		return fmt.Errorf("UsageController - recordEvent - c.usage.Record: %w", err)
	}

	return nil
}

func (c *UsageController) worker(tasks <-chan kafka.Message) {
	defer c.wg.Done()

	for event := range tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(fmt.Errorf("panic %v", r), "UsageController - worker - panic")
				}
			}()

			processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
			err := c.recordEvent(processCtx, event)
			processCancel()
			if err != nil {
				c.logger.Error(err, "UsageController - worker - c.recordEvent")

				return
			}

			// commit only after the aggregate is updated
			commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
			err = c.ec.CommitEvent(commitCtx, event)
			commitCancel()
			if err != nil {
				c.logger.Error(err, "UsageController - worker - c.ec.CommitEvent")
			}
		}()
	}
}

func (c *UsageController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		c.ec.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
