package bulkop

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/panjf2000/ants/v2"
)

type taskPool struct {
	pool *ants.Pool
}

func newTaskPool(size int) *taskPool {
	pool, _ := ants.NewPool(size)
	return &taskPool{
		pool: pool,
	}
}

// Future get result in future
type Future interface {
	// Get block until the task finished
	Get() (interface{}, error)
	// Done closed once the task finished
	Done() <-chan struct{}
}

type futureImpl struct {
	done chan struct{}
	val  interface{}
	err  error
}

func (f *futureImpl) Get() (interface{}, error) {
	<-f.done
	return f.val, f.err
}

func (f *futureImpl) Done() <-chan struct{} {
	return f.done
}

func (f *futureImpl) complete(val interface{}, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

func (pool *taskPool) Submit(ctx context.Context, task func() (interface{}, error)) Future {
	fu := &futureImpl{done: make(chan struct{})}
	err := pool.pool.Submit(func() {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(ctx, "panic in pooled task, err:%v, stack:%v", err, string(debug.Stack()))
				fu.complete(nil, fmt.Errorf("panic:%v", err))
			}
		}()
		val, err := task()
		fu.complete(val, err)
	})
	if err != nil {
		fu.complete(nil, err)
	}
	return fu
}

func (pool *taskPool) Release() {
	pool.pool.Release()
}

func (pool *taskPool) SetMaxSize(size int) {
	pool.pool.Tune(size)
}
