package bulkop

import (
	"context"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/chararch/bulkop/status"
)

func register(t *testing.T, p *BatchProcessor) {
	assert.Equal(t, nil, Register(p))
	t.Cleanup(func() { Unregister(p) })
}

func TestRegister(t *testing.T) {
	p := NewProcessor("operator_register").Operation(failOn()).Build()
	register(t, p)
	err := Register(NewProcessor("operator_register").Operation(failOn()).Build())
	assert.NotEqual(t, nil, err)

	_, err = Start(context.Background(), "unknown_action", entities("A"))
	assert.Equal(t, true, IsCode(err, ErrCodeNotFound))
}

func TestOperator_Start(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor("operator_start").Operation(failOn("B")).MaxRetries(0).Build()
	register(t, p)

	result, err := Start(ctx, "operator_start", entities("A", "B"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "1 succeeded, 1 failed, 0 not processed", result.Snapshot.Progress.Summary())

	snap, err := Status(ctx, "operator_start")
	assert.Equal(t, nil, err)
	assert.Equal(t, result.Snapshot.RunID, snap.RunID)
	snap, err = Status(ctx, result.Snapshot.RunID)
	assert.Equal(t, nil, err)
	assert.Equal(t, status.PhaseCompleted, snap.Phase)

	// a completed run is replaced by the next start
	result2, err := Start(ctx, "operator_start", entities("C"))
	assert.Equal(t, nil, err)
	assert.NotEqual(t, result.Snapshot.RunID, result2.Snapshot.RunID)

	_, err = Start(ctx, "operator_start", nil)
	assert.Equal(t, []string{NoItemsViolation}, Violations(err))
}

func TestOperator_StartAsyncAndCancel(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	counter := countCalls(func(ctx context.Context, id string) error {
		if id == "A" {
			started <- struct{}{}
			<-release
		}
		return nil
	})
	done := make(chan *Snapshot, 1)
	p := NewProcessor("operator_async").Operation(counter.Operation).AttemptTimeout(0).Listener(func(s *Snapshot) {
		if s.Phase == status.PhaseCompleted {
			done <- s
		}
	}).Build()
	register(t, p)

	runID, err := StartAsync(ctx, "operator_async", entities("A", "B", "C"))
	assert.Equal(t, nil, err)
	assert.NotEqual(t, "", runID)
	<-started

	_, err = StartAsync(ctx, "operator_async", entities("X"))
	assert.Equal(t, RunningError, err)

	assert.Equal(t, nil, Cancel(ctx, runID))
	snap, err := Status(ctx, runID)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, snap.Cancelling)
	close(release)

	select {
	case final := <-done:
		assert.Equal(t, runID, final.RunID)
		assert.Equal(t, true, final.Cancelled)
		assert.Equal(t, "1 succeeded, 0 failed, 2 not processed", final.Progress.Summary())
	case <-time.After(5 * time.Second):
		t.Fatal("async run did not complete")
	}
	assert.Equal(t, 1, counter.total())
	assert.Equal(t, 0, counter.count("X"))
}

func TestOperator_CancelUnknown(t *testing.T) {
	err := Cancel(context.Background(), "no-such-run")
	assert.Equal(t, true, IsCode(err, ErrCodeNotFound))
}

func TestOperator_StatusFromRepository(t *testing.T) {
	ctx := context.Background()
	useTestDB(t)
	p := NewProcessor("operator_status").Operation(failOn()).Build()
	register(t, p)

	result, err := Start(ctx, "operator_status", entities("A", "B"))
	assert.Equal(t, nil, err)
	p.Close(ctx)

	snap, err := Status(ctx, result.Snapshot.RunID)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, snap.Progress.Completed)

	snap, err = Status(ctx, "operator_status")
	assert.Equal(t, nil, err)
	assert.Equal(t, result.Snapshot.RunID, snap.RunID)

	Unregister(p)
	snap, err = Status(ctx, "operator_status")
	assert.Equal(t, nil, err)
	assert.Equal(t, result.Snapshot.RunID, snap.RunID)

	_, err = Status(ctx, "missing-run")
	assert.Equal(t, true, IsCode(err, ErrCodeNotFound))
}
