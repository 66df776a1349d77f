package bulkop

import (
	"context"
	"fmt"
	"time"

	"github.com/chararch/bulkop/status"
	"github.com/pkg/errors"
)

// execItem drive one record from PENDING to COMPLETED or ERROR, retrying failures other than timeouts
func (p *BatchProcessor) execItem(ctx context.Context, run *BatchRun, index int) {
	rec := run.Records[index]
	item := run.Items[index]
	logger.Debug(ctx, "item execute start, name:%v, index:%v, itemId:%v", p.name, index, item.ID)
	for {
		p.transit(ctx, run, rec, status.PROCESSING, "", nil)
		err := p.attempt(ctx, item)
		if err == nil {
			p.transit(ctx, run, rec, status.COMPLETED, "", nil)
			logger.Info(ctx, "item execute completed, name:%v, itemId:%v, attempt:%v", p.name, item.ID, rec.Attempt)
			return
		}
		if err == TimeoutError {
			rec.TimedOut = true
			p.transit(ctx, run, rec, status.ERROR, TimeoutError.Message(), err)
			logger.Error(ctx, "item execute timeout, name:%v, itemId:%v, attempt:%v, timeout:%v", p.name, item.ID, rec.Attempt, p.policy.attemptTimeout)
			return
		}
		if rec.Attempt < p.policy.maxRetries {
			rec.Attempt++
			msg := fmt.Sprintf("Retrying (%d/%d): %v", rec.Attempt, p.policy.maxRetries, err)
			p.transit(ctx, run, rec, status.RETRYING, msg, NewBatchError(ErrCodeRetry, "item:%v will retry", item.ID, err))
			backoff := p.policy.backoff(rec.Attempt)
			logger.Warn(ctx, "item execute will retry, name:%v, itemId:%v, attempt:%v, backoff:%v, err:%v", p.name, item.ID, rec.Attempt, backoff, err)
			p.sleep(backoff)
			continue
		}
		msg := fmt.Sprintf("Failed after %d attempts: %v", rec.Attempt+1, err)
		p.transit(ctx, run, rec, status.ERROR, msg, NewBatchError(ErrCodeRetryExhausted, "item:%v failed", item.ID, err))
		logger.Error(ctx, "item execute failed, name:%v, itemId:%v, attempts:%v, err:%v", p.name, item.ID, rec.Attempt+1, err)
		return
	}
}

// attempt race one call of the operation against the attempt timeout.
// The operation is not bound to the batch context so a cancelled batch never aborts it;
// on timeout its own context is cancelled and a late result is discarded.
// The timer is armed before submission, waiting for a free slot of the attempt pool counts against the timeout.
func (p *BatchProcessor) attempt(ctx context.Context, item WorkItem) error {
	attemptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	var timeout <-chan time.Time
	if p.policy.attemptTimeout > 0 {
		timer := p.clock.NewTimer(p.policy.attemptTimeout)
		defer timer.Stop()
		timeout = timer.Chan()
	}
	submitted := make(chan Future, 1)
	go func() {
		submitted <- attemptPool.Submit(attemptCtx, func() (interface{}, error) {
			if err := attemptCtx.Err(); err != nil {
				return nil, err
			}
			return nil, p.operation(attemptCtx, item.ID)
		})
	}()
	var fu Future
	select {
	case fu = <-submitted:
	case <-timeout:
		logger.Warn(ctx, "attempt pool exhausted, attempt timeout before start, name:%v, itemId:%v", p.name, item.ID)
		return TimeoutError
	}
	select {
	case <-fu.Done():
		_, err := fu.Get()
		return err
	case <-timeout:
		return TimeoutError
	}
}

func (p *BatchProcessor) transit(ctx context.Context, run *BatchRun, rec *ProcessingRecord, next status.ItemStatus, msg string, reason error) {
	if !rec.Status.CanTransit(next) {
		logger.Error(ctx, "illegal item status transition ignored, name:%v, itemId:%v, from:%v, to:%v", p.name, rec.ItemID, rec.Status, next)
		return
	}
	now := p.clock.Now()
	rec.Status = next
	switch next {
	case status.PROCESSING:
		if rec.StartedAt.IsZero() {
			rec.StartedAt = now
		}
		rec.Error = ""
		rec.Reason = nil
	case status.RETRYING:
		rec.Error = msg
		rec.Reason = reason
	case status.COMPLETED:
		rec.Error = ""
		rec.Reason = nil
		rec.FinishedAt = now
	case status.ERROR:
		rec.Error = msg
		rec.Reason = reason
		rec.FinishedAt = now
	}
	if err := saveRecord(ctx, run, rec); err != nil {
		logger.Error(ctx, "save item record failed, name:%v, itemId:%v, status:%v, err:%v", p.name, rec.ItemID, rec.Status, err)
	}
	p.publish(ctx, run)
}

// Reason unwrap the error returned by the operation from a record reason
func Reason(rec ProcessingRecord) error {
	if rec.Reason == nil {
		return nil
	}
	if rec.Reason == TimeoutError {
		return rec.Reason
	}
	return errors.Cause(rec.Reason)
}
