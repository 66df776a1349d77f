package bulkop

import (
	"database/sql"
	"os"

	"github.com/chararch/bulkop/internal/logs"
)

// log
var logger logs.Logger = logs.NewLogger(os.Stdout, logs.Info)

// SetLogger set a logger instance for bulkop
func SetLogger(l logs.Logger) {
	if l == nil {
		l = logs.NewNopLogger()
	}
	logger = l
}

// task pool
const (
	DefaultBatchPoolSize   = 10
	DefaultAttemptPoolSize = 100
)

// batchPool runs batches started asynchronously, attemptPool runs the individual attempts raced against their timeout
var batchPool = newTaskPool(DefaultBatchPoolSize)
var attemptPool = newTaskPool(DefaultAttemptPoolSize)

// SetMaxRunningBatches set max number of batches driven in parallel by StartAsync
func SetMaxRunningBatches(size int) {
	batchPool.SetMaxSize(size)
}

// SetMaxRunningAttempts set max number of operation attempts in flight, timed out attempts still hold a slot until they return
func SetMaxRunningAttempts(size int) {
	attemptPool.SetMaxSize(size)
}

// repository
var repository Repository

// SetDB register a *sql.DB instance for bulkop to store batch runs and item records
func SetDB(sqlDb *sql.DB) {
	if sqlDb == nil {
		panic("sqlDb must not be nil")
	}
	repository = NewSQLRepository(sqlDb)
}

// SetRepository register a Repository, nil disables persistence
func SetRepository(repo Repository) {
	repository = repo
}
