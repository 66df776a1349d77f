package bulkop

import (
	"sync/atomic"
	"time"

	"github.com/chararch/bulkop/status"
	"github.com/google/uuid"
)

// Entity an item selected by the caller, identified by an opaque id and shown by its label
type Entity interface {
	EntityID() string
	EntityLabel() string
}

// WorkItem wraps one entity of a batch, immutable once the batch starts
type WorkItem struct {
	Index  int
	ID     string
	Label  string
	Entity Entity
}

// ProcessingRecord progress of one WorkItem, written only by the batch driver
type ProcessingRecord struct {
	Index      int
	ItemID     string
	Label      string
	Status     status.ItemStatus
	Attempt    int
	Error      string
	TimedOut   bool
	Reason     error `json:"-"`
	StartedAt  time.Time
	FinishedAt time.Time
	version    int64
}

// Duration time spent on the item so far, zero before it started
func (r *ProcessingRecord) Duration(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if !r.FinishedAt.IsZero() {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// BatchRun one invocation of a BatchProcessor over a fixed set of WorkItems
type BatchRun struct {
	ID         string
	Name       string
	Params     *BatchParams
	Phase      status.Phase
	Items      []WorkItem
	Records    []*ProcessingRecord
	Violations []string
	Current    int
	CreateTime time.Time
	StartTime  time.Time
	EndTime    time.Time
	Version    int64
	cancelled  atomic.Bool
	closed     atomic.Bool
}

func newBatchRun(name string, params *BatchParams, entities []Entity, now time.Time) *BatchRun {
	run := &BatchRun{
		ID:         uuid.New().String(),
		Name:       name,
		Params:     params,
		Phase:      status.PhasePreparing,
		Items:      make([]WorkItem, 0, len(entities)),
		Current:    -1,
		CreateTime: now,
	}
	for i, entity := range entities {
		item := WorkItem{Index: i, Entity: entity}
		if entity != nil {
			item.ID = entity.EntityID()
			item.Label = entity.EntityLabel()
		}
		run.Items = append(run.Items, item)
	}
	return run
}

func (run *BatchRun) buildRecords() {
	run.Records = make([]*ProcessingRecord, 0, len(run.Items))
	for _, item := range run.Items {
		run.Records = append(run.Records, &ProcessingRecord{
			Index:  item.Index,
			ItemID: item.ID,
			Label:  item.Label,
			Status: status.PENDING,
		})
	}
}

// Cancelled report whether cancellation has been requested
func (run *BatchRun) Cancelled() bool {
	return run.cancelled.Load()
}

func (run *BatchRun) snapshot(now time.Time, estimatePerItem time.Duration) *Snapshot {
	s := &Snapshot{
		RunID:      run.ID,
		Name:       run.Name,
		Phase:      run.Phase,
		Cancelled:  run.cancelled.Load(),
		Current:    run.Current,
		Records:    make([]ProcessingRecord, len(run.Records)),
		Violations: append([]string(nil), run.Violations...),
		CreateTime: run.CreateTime,
		StartTime:  run.StartTime,
		EndTime:    run.EndTime,
	}
	if run.Params != nil {
		s.Params = run.Params.ToMap()
	}
	for i, rec := range run.Records {
		s.Records[i] = *rec
	}
	s.Cancelling = s.Cancelled && s.Phase == status.PhaseProcessing
	s.Progress = computeProgress(s.Records, s.StartTime, s.EndTime, now, estimatePerItem)
	return s
}

// Snapshot immutable view of a BatchRun, handed to observers after every change
type Snapshot struct {
	RunID      string
	Name       string
	Phase      status.Phase
	Cancelling bool
	Cancelled  bool
	Current    int
	Records    []ProcessingRecord
	Violations []string
	Params     map[string]interface{}
	CreateTime time.Time
	StartTime  time.Time
	EndTime    time.Time
	Progress   Progress
}

// Record find the record of an item by its id
func (s *Snapshot) Record(itemID string) (ProcessingRecord, bool) {
	for _, rec := range s.Records {
		if rec.ItemID == itemID {
			return rec, true
		}
	}
	return ProcessingRecord{}, false
}

// TimedOut ids of the items whose last attempt timed out, their remote state is unknown
func (s *Snapshot) TimedOut() []string {
	ids := make([]string, 0)
	for _, rec := range s.Records {
		if rec.TimedOut {
			ids = append(ids, rec.ItemID)
		}
	}
	return ids
}

// Result handed back to the caller once a run completed
type Result struct {
	Snapshot  *Snapshot
	Succeeded []Entity
}
