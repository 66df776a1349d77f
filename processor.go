package bulkop

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chararch/bulkop/internal/logs"
	"github.com/chararch/bulkop/status"
	"github.com/jonboulle/clockwork"
)

// BatchProcessor applies one operation to a set of entities, one entity at a time.
// A processor owns at most one BatchRun; Init replaces a run that is not processing.
type BatchProcessor struct {
	name       string
	operation  Operation
	validators []Validator
	policy     policy
	clock      clockwork.Clock
	listeners  []BatchListener
	observers  []Observer
	params     *BatchParams

	mu       sync.Mutex
	launchMu sync.Mutex
	run      *BatchRun
	latest   atomic.Pointer[Snapshot]
}

func (p *BatchProcessor) Name() string {
	return p.name
}

// Init validate entities and build a new run in PREPARING phase.
// It is a no-op while the current run is processing.
func (p *BatchProcessor) Init(ctx context.Context, entities []Entity) BatchError {
	snap, err := p.prepare(ctx, entities)
	if snap != nil {
		p.notifyAll(ctx, snap)
	}
	return err
}

func (p *BatchProcessor) prepare(ctx context.Context, entities []Entity) (*Snapshot, BatchError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run != nil && p.run.Phase == status.PhaseProcessing {
		logger.Warn(ctx, "batch is processing, init ignored, name:%v, runId:%v", p.name, p.run.ID)
		return nil, nil
	}
	run := newBatchRun(p.name, p.params.DeepCopy(), entities, p.clock.Now())
	ctx = context.WithoutCancel(runContext(ctx, run))
	violations := p.validate(run)
	if len(violations) > 0 {
		run.Violations = violations
		p.run = run
		logger.Warn(ctx, "batch validation failed, name:%v, violations:%v", p.name, len(violations))
		return p.latestOf(run), NewValidationError(violations)
	}
	run.buildRecords()
	p.run = run
	if err := saveRun(ctx, run); err != nil {
		logger.Error(ctx, "save batch run failed, name:%v, err:%v", p.name, err)
	}
	for _, rec := range run.Records {
		if err := saveRecord(ctx, run, rec); err != nil {
			logger.Error(ctx, "save item record failed, name:%v, itemId:%v, err:%v", p.name, rec.ItemID, err)
		}
	}
	logger.Info(ctx, "batch initialized, name:%v, items:%v", p.name, len(run.Records))
	return p.latestOf(run), nil
}

func (p *BatchProcessor) validate(run *BatchRun) []string {
	if len(run.Items) == 0 {
		return []string{NoItemsViolation}
	}
	violations := make([]string, 0)
	seen := make(map[string]int, len(run.Items))
	for _, item := range run.Items {
		name := itemName(item)
		if item.Entity == nil {
			violations = append(violations, fmt.Sprintf("%s: missing entity", name))
			continue
		}
		if first, ok := seen[item.ID]; ok && item.ID != "" {
			violations = append(violations, fmt.Sprintf("%s: duplicates item #%d", name, first+1))
		} else {
			seen[item.ID] = item.Index
		}
		for _, v := range p.validators {
			for _, msg := range v.Validate(item.Entity) {
				violations = append(violations, fmt.Sprintf("%s: %s", name, msg))
			}
		}
	}
	return violations
}

func itemName(item WorkItem) string {
	label := item.Label
	if strings.TrimSpace(label) == "" {
		label = item.ID
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Sprintf("item #%d", item.Index+1)
	}
	return fmt.Sprintf("item #%d (%s)", item.Index+1, label)
}

// Start drive the initialized run to completion and hand back its outcome.
// Cancellation of ctx or Cancel is observed before each item, the item in flight always finishes.
func (p *BatchProcessor) Start(ctx context.Context) (*Result, BatchError) {
	run, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	return p.drive(ctx, run)
}

func (p *BatchProcessor) begin(ctx context.Context) (*BatchRun, BatchError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	run := p.run
	if run == nil {
		return nil, NotInitError
	}
	switch run.Phase {
	case status.PhaseProcessing:
		logger.Warn(ctx, "batch is already processing, name:%v, runId:%v", p.name, run.ID)
		return nil, RunningError
	case status.PhaseCompleted:
		return nil, CompletedError
	}
	if len(run.Violations) > 0 {
		return nil, NewValidationError(run.Violations)
	}
	run.Phase = status.PhaseProcessing
	run.StartTime = p.clock.Now()
	return run, nil
}

// drive run the loop on the calling goroutine. Only the check before each item observes the caller's ctx,
// saves and the item in flight use a detached ctx so a cancelled run is still stored as COMPLETED.
func (p *BatchProcessor) drive(ctx context.Context, run *BatchRun) (result *Result, err BatchError) {
	stop := ctx
	ctx = context.WithoutCancel(runContext(ctx, run))
	defer func() {
		if er := recover(); er != nil {
			logger.Error(ctx, "panic in batch processing, name:%v, err:%v, stack:%v", p.name, er, string(debug.Stack()))
			err = NewBatchError(ErrCodeGeneral, "panic in batch processing", fmt.Errorf("%v", er))
			result = p.finish(ctx, run)
		}
	}()
	logger.Info(ctx, "batch processing start, name:%v, items:%v", p.name, len(run.Records))
	p.persistRun(ctx, run)
	p.publish(ctx, run)
	for _, listener := range p.listeners {
		if be := listener.BeforeBatch(run.snapshot(p.clock.Now(), p.policy.estimatePerItem)); be != nil {
			logger.Error(ctx, "batch listener executing error, name:%v, listener:%v, err:%v", p.name, reflect.TypeOf(listener).String(), be)
			return p.finish(ctx, run), be
		}
	}
	p.sleep(p.policy.startDelay)
	for i := range run.Records {
		if p.stopRequested(stop, run) {
			logger.Info(ctx, "batch cancelled, name:%v, processed:%v, remaining:%v", p.name, i, len(run.Records)-i)
			break
		}
		run.Current = i
		p.execItem(ctx, run, i)
		if i < len(run.Records)-1 {
			p.sleep(p.policy.itemDelay)
		}
	}
	result = p.finish(ctx, run)
	for _, listener := range p.listeners {
		if be := listener.AfterBatch(result.Snapshot); be != nil {
			logger.Error(ctx, "batch listener executing error, name:%v, listener:%v, err:%v", p.name, reflect.TypeOf(listener).String(), be)
			err = be
			break
		}
	}
	logger.Info(ctx, "batch processing finish, name:%v, cancelled:%v, %v", p.name, run.Cancelled(), result.Snapshot.Progress.Summary())
	return result, err
}

func (p *BatchProcessor) stopRequested(ctx context.Context, run *BatchRun) bool {
	if ctx.Err() != nil {
		run.cancelled.Store(true)
	}
	return run.cancelled.Load() || run.closed.Load()
}

func (p *BatchProcessor) finish(ctx context.Context, run *BatchRun) *Result {
	p.mu.Lock()
	run.Phase = status.PhaseCompleted
	run.Current = -1
	run.EndTime = p.clock.Now()
	discarded := run.closed.Load() && p.run == run
	if discarded {
		p.run = nil
	}
	p.mu.Unlock()
	p.persistRun(ctx, run)
	snap := p.publish(ctx, run)
	if discarded {
		p.latest.CompareAndSwap(snap, nil)
	}
	result := &Result{Snapshot: snap, Succeeded: make([]Entity, 0)}
	for i, rec := range run.Records {
		if rec.Status == status.COMPLETED {
			result.Succeeded = append(result.Succeeded, run.Items[i].Entity)
		}
	}
	return result
}

// Cancel request cancellation of the current run, observed before the next item starts
func (p *BatchProcessor) Cancel(ctx context.Context) BatchError {
	p.mu.Lock()
	defer p.mu.Unlock()
	run := p.run
	if run == nil {
		return NotInitError
	}
	if !run.Phase.Before(status.PhaseCompleted) {
		return CompletedError
	}
	run.cancelled.Store(true)
	logger.Info(runContext(ctx, run), "batch cancel requested, name:%v, phase:%v", p.name, run.Phase)
	return nil
}

// Close discard the current run, a processing run is cancelled and discarded once its item in flight finishes
func (p *BatchProcessor) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	run := p.run
	if run == nil {
		return
	}
	if run.Phase == status.PhaseProcessing {
		run.closed.Store(true)
		run.cancelled.Store(true)
		return
	}
	p.run = nil
	p.latest.Store(nil)
}

// Snapshot latest published view of the current run, nil when there is none
func (p *BatchProcessor) Snapshot() *Snapshot {
	snap := p.latest.Load()
	if snap == nil {
		return nil
	}
	p.mu.Lock()
	run := p.run
	p.mu.Unlock()
	if run != nil && run.ID == snap.RunID && snap.Phase == status.PhaseProcessing && run.cancelled.Load() && !snap.Cancelling {
		cp := *snap
		cp.Cancelled = true
		cp.Cancelling = true
		return &cp
	}
	return snap
}

func (p *BatchProcessor) publish(ctx context.Context, run *BatchRun) *Snapshot {
	snap := p.latestOf(run)
	p.notifyAll(ctx, snap)
	return snap
}

func (p *BatchProcessor) latestOf(run *BatchRun) *Snapshot {
	snap := run.snapshot(p.clock.Now(), p.policy.estimatePerItem)
	p.latest.Store(snap)
	return snap
}

func (p *BatchProcessor) notifyAll(ctx context.Context, snap *Snapshot) {
	for _, ob := range p.observers {
		p.notify(ctx, ob, snap)
	}
}

func (p *BatchProcessor) notify(ctx context.Context, ob Observer, snap *Snapshot) {
	defer func() {
		if er := recover(); er != nil {
			logger.Error(ctx, "panic in batch observer, name:%v, observer:%v, err:%v", p.name, reflect.TypeOf(ob).String(), er)
		}
	}()
	ob.OnProgress(snap)
}

func (p *BatchProcessor) persistRun(ctx context.Context, run *BatchRun) {
	if err := saveRun(ctx, run); err != nil {
		logger.Error(ctx, "save batch run failed, name:%v, phase:%v, err:%v", p.name, run.Phase, err)
	}
}

func (p *BatchProcessor) sleep(d time.Duration) {
	if d > 0 {
		p.clock.Sleep(d)
	}
}

func runContext(ctx context.Context, run *BatchRun) context.Context {
	ctx = logs.WithField(ctx, "run_id", run.ID)
	return logs.WithField(ctx, "action", run.Name)
}
