package bulkop

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	"github.com/chararch/bulkop/status"
	"github.com/chararch/bulkop/util"
	"github.com/pkg/errors"
)

// Repository stores batch runs and their item records
type Repository interface {
	// SaveRun insert the run when its Version is 0, otherwise update it if Version still matches
	SaveRun(ctx context.Context, run *BatchRun) BatchError
	// SaveRecord insert or update the record of an item of run
	SaveRecord(ctx context.Context, runID string, record *ProcessingRecord) BatchError
	// FindRun load a run by id, nil if absent
	FindRun(ctx context.Context, runID string) (*Snapshot, BatchError)
	// FindLastRun load the latest run of a processor name, nil if absent
	FindLastRun(ctx context.Context, name string) (*Snapshot, BatchError)
}

//go:embed sql/schema.sql
var schema string

// CreateSchema create the batch_run and batch_item_record tables if they do not exist
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "create batch schema failed")
		}
	}
	return nil
}

const saveRetries = 3

func saveRun(ctx context.Context, run *BatchRun) BatchError {
	if repository == nil {
		return nil
	}
	var err BatchError
	for i := 0; i < saveRetries; i++ {
		err = repository.SaveRun(ctx, run)
		if err != nil && err.Code() == ErrCodeDbFail {
			logger.Warn(ctx, "save batch run failed and retry for recoverable err, runId:%v, times:%v, err:%v", run.ID, i+1, err)
			continue
		}
		break
	}
	return err
}

func saveRecord(ctx context.Context, run *BatchRun, rec *ProcessingRecord) BatchError {
	if repository == nil {
		return nil
	}
	var err BatchError
	for i := 0; i < saveRetries; i++ {
		err = repository.SaveRecord(ctx, run.ID, rec)
		if err != nil && err.Code() == ErrCodeDbFail {
			logger.Warn(ctx, "save item record failed and retry for recoverable err, runId:%v, itemId:%v, times:%v, err:%v", run.ID, rec.ItemID, i+1, err)
			continue
		}
		break
	}
	return err
}

// FindRun load a stored run from the registered repository
func FindRun(ctx context.Context, runID string) (*Snapshot, BatchError) {
	if repository == nil {
		return nil, NewBatchError(ErrCodeState, "no repository registered")
	}
	return repository.FindRun(ctx, runID)
}

type sqlRepository struct {
	db              *sql.DB
	estimatePerItem time.Duration
}

// NewSQLRepository Repository over a *sql.DB, statements use `?` placeholders (mysql, sqlite)
func NewSQLRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db, estimatePerItem: DefaultEstimatePerItem}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *sqlRepository) SaveRun(ctx context.Context, run *BatchRun) BatchError {
	params := "{}"
	if run.Params != nil {
		str, err := util.JsonString(run.Params)
		if err != nil {
			return NewBatchError(ErrCodeGeneral, "encode params of run:%v failed", run.ID, err)
		}
		params = str
	}
	now := time.Now().UnixMilli()
	if run.Version == 0 {
		_, err := r.db.ExecContext(ctx, "insert into batch_run(run_id, name, phase, cancelled, total, params, create_time, start_time, end_time, last_updated, version) values(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			run.ID, run.Name, string(run.Phase), boolInt(run.Cancelled()), len(run.Records), params, toMillis(run.CreateTime), toMillis(run.StartTime), toMillis(run.EndTime), now, 1)
		if err != nil {
			return NewBatchError(ErrCodeDbFail, "insert batch_run failed", err)
		}
		run.Version = 1
		return nil
	}
	res, err := r.db.ExecContext(ctx, "update batch_run set phase=?, cancelled=?, start_time=?, end_time=?, last_updated=?, version=? where run_id=? and version=?",
		string(run.Phase), boolInt(run.Cancelled()), toMillis(run.StartTime), toMillis(run.EndTime), now, run.Version+1, run.ID, run.Version)
	if err != nil {
		return NewBatchError(ErrCodeDbFail, "update batch_run failed", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected <= 0 {
		return NewBatchError(ErrCodeConcurrency, "update batch_run failed, runId:%v, version:%v", run.ID, run.Version)
	}
	run.Version++
	return nil
}

func (r *sqlRepository) SaveRecord(ctx context.Context, runID string, rec *ProcessingRecord) BatchError {
	now := time.Now().UnixMilli()
	if rec.version == 0 {
		_, err := r.db.ExecContext(ctx, "insert into batch_item_record(run_id, item_index, item_id, label, status, attempt, error_message, timed_out, start_time, end_time, last_updated, version) values(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			runID, rec.Index, rec.ItemID, rec.Label, string(rec.Status), rec.Attempt, rec.Error, boolInt(rec.TimedOut), toMillis(rec.StartedAt), toMillis(rec.FinishedAt), now, 1)
		if err != nil {
			return NewBatchError(ErrCodeDbFail, "insert batch_item_record failed", err)
		}
		rec.version = 1
		return nil
	}
	res, err := r.db.ExecContext(ctx, "update batch_item_record set status=?, attempt=?, error_message=?, timed_out=?, start_time=?, end_time=?, last_updated=?, version=? where run_id=? and item_index=? and version=?",
		string(rec.Status), rec.Attempt, rec.Error, boolInt(rec.TimedOut), toMillis(rec.StartedAt), toMillis(rec.FinishedAt), now, rec.version+1, runID, rec.Index, rec.version)
	if err != nil {
		return NewBatchError(ErrCodeDbFail, "update batch_item_record failed", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected <= 0 {
		return NewBatchError(ErrCodeConcurrency, "update batch_item_record failed, runId:%v, index:%v", runID, rec.Index)
	}
	rec.version++
	return nil
}

const runColumns = "run_id, name, phase, cancelled, params, create_time, start_time, end_time, version"

func (r *sqlRepository) FindRun(ctx context.Context, runID string) (*Snapshot, BatchError) {
	return r.findOne(ctx, "select "+runColumns+" from batch_run where run_id=?", runID)
}

func (r *sqlRepository) FindLastRun(ctx context.Context, name string) (*Snapshot, BatchError) {
	return r.findOne(ctx, "select "+runColumns+" from batch_run where name=? order by create_time desc limit 1", name)
}

func (r *sqlRepository) findOne(ctx context.Context, query string, arg interface{}) (*Snapshot, BatchError) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var (
		snap                     Snapshot
		phase, params            string
		cancelled                int
		create, start, end, vers int64
		nullParams               sql.NullString
	)
	err := row.Scan(&snap.RunID, &snap.Name, &phase, &cancelled, &nullParams, &create, &start, &end, &vers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query batch_run failed", err)
	}
	params = nullParams.String
	snap.Phase = status.Phase(phase)
	snap.Cancelled = cancelled != 0
	snap.CreateTime, snap.StartTime, snap.EndTime = fromMillis(create), fromMillis(start), fromMillis(end)
	snap.Current = -1
	bp := NewBatchParams()
	if er := util.ParseJson(params, bp); er != nil {
		return nil, NewBatchError(ErrCodeGeneral, "decode params of run:%v failed", snap.RunID, er)
	}
	snap.Params = bp.ToMap()
	records, be := r.findRecords(ctx, snap.RunID)
	if be != nil {
		return nil, be
	}
	snap.Records = records
	for _, rec := range records {
		if rec.Status.InFlight() {
			snap.Current = rec.Index
		}
	}
	snap.Cancelling = snap.Cancelled && snap.Phase == status.PhaseProcessing
	snap.Progress = computeProgress(snap.Records, snap.StartTime, snap.EndTime, time.Now(), r.estimatePerItem)
	return &snap, nil
}

func (r *sqlRepository) findRecords(ctx context.Context, runID string) ([]ProcessingRecord, BatchError) {
	rows, err := r.db.QueryContext(ctx, "select item_index, item_id, label, status, attempt, error_message, timed_out, start_time, end_time, version from batch_item_record where run_id=? order by item_index", runID)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query batch_item_record failed", err)
	}
	defer rows.Close()

	records := make([]ProcessingRecord, 0)
	for rows.Next() {
		var (
			rec        ProcessingRecord
			st         string
			msg        sql.NullString
			timedOut   int
			start, end int64
		)
		if err = rows.Scan(&rec.Index, &rec.ItemID, &rec.Label, &st, &rec.Attempt, &msg, &timedOut, &start, &end, &rec.version); err != nil {
			return nil, NewBatchError(ErrCodeDbFail, "scan batch_item_record failed", err)
		}
		rec.Status = status.ItemStatus(st)
		rec.Error = msg.String
		rec.TimedOut = timedOut != 0
		rec.StartedAt, rec.FinishedAt = fromMillis(start), fromMillis(end)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "iterate batch_item_record failed", err)
	}
	return records, nil
}
