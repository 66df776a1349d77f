package bulkop

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*BatchProcessor)
)

// Register register a processor to bulkop, one per bulk action
func Register(p *BatchProcessor) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[p.Name()]; ok {
		return errors.Errorf("processor with name:%v has already been registered", p.Name())
	}
	registry[p.Name()] = p
	return nil
}

// Unregister unregister a processor from bulkop
func Unregister(p *BatchProcessor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, p.Name())
}

func lookup(name string) (*BatchProcessor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Start validate entities and process them with the processor registered under name, block until the run completed
func Start(ctx context.Context, name string, entities []Entity) (*Result, error) {
	p, run, err := launch(ctx, name, entities)
	if err != nil {
		return nil, err
	}
	result, be := p.drive(ctx, run)
	if be != nil {
		return result, be
	}
	return result, nil
}

// StartAsync validate entities synchronously then process them on the batch pool, return the run id
func StartAsync(ctx context.Context, name string, entities []Entity) (string, error) {
	p, run, err := launch(ctx, name, entities)
	if err != nil {
		return "", err
	}
	batchPool.Submit(ctx, func() (interface{}, error) {
		result, be := p.drive(ctx, run)
		if be != nil {
			return result, be
		}
		return result, nil
	})
	logger.Info(runContext(ctx, run), "batch started asynchronously, name:%v, items:%v", name, len(run.Records))
	return run.ID, nil
}

func launch(ctx context.Context, name string, entities []Entity) (*BatchProcessor, *BatchRun, error) {
	p, ok := lookup(name)
	if !ok {
		logger.Error(ctx, "can not find processor with name:%v", name)
		return nil, nil, NewBatchError(ErrCodeNotFound, "can not find processor with name:%v", name)
	}
	p.launchMu.Lock()
	defer p.launchMu.Unlock()
	if be := p.Init(ctx, entities); be != nil {
		return nil, nil, be
	}
	run, be := p.begin(ctx)
	if be != nil {
		return nil, nil, be
	}
	return p, run, nil
}

// Cancel request cancellation of a run, ref is either an action name or a run id
func Cancel(ctx context.Context, ref string) error {
	p, ok := lookup(ref)
	if !ok {
		p = findByRunID(ref)
	}
	if p == nil {
		logger.Error(ctx, "there is no processing run with ref:%v to cancel", ref)
		return NewBatchError(ErrCodeNotFound, "there is no processing run with ref:%v to cancel", ref)
	}
	if be := p.Cancel(ctx); be != nil {
		return be
	}
	return nil
}

// Status latest snapshot of a run, ref is either an action name or a run id.
// Runs no longer held by a processor are loaded from the repository, by run id first and then as the last run of an action.
func Status(ctx context.Context, ref string) (*Snapshot, error) {
	if p, ok := lookup(ref); ok {
		if snap := p.Snapshot(); snap != nil {
			return snap, nil
		}
		if repository != nil {
			snap, be := repository.FindLastRun(ctx, ref)
			if be != nil {
				return nil, be
			}
			if snap != nil {
				return snap, nil
			}
		}
		return nil, NewBatchError(ErrCodeNotFound, "processor:%v has no run", ref)
	}
	if p := findByRunID(ref); p != nil {
		if snap := p.Snapshot(); snap != nil && snap.RunID == ref {
			return snap, nil
		}
	}
	if repository != nil {
		snap, be := repository.FindRun(ctx, ref)
		if be != nil {
			logger.Error(ctx, "find batch run error, runId:%v, err:%v", ref, be)
			return nil, be
		}
		if snap != nil {
			return snap, nil
		}
		if snap, be = repository.FindLastRun(ctx, ref); be != nil {
			return nil, be
		}
		if snap != nil {
			return snap, nil
		}
	}
	return nil, NewBatchError(ErrCodeNotFound, "can not find run with ref:%v", ref)
}

func findByRunID(runID string) *BatchProcessor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, p := range registry {
		p.mu.Lock()
		run := p.run
		p.mu.Unlock()
		if run != nil && run.ID == runID {
			return p
		}
	}
	return nil
}
