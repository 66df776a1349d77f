package bulkop

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// BatchError error raised by the batch engine, identified by Code
type BatchError interface {
	Code() string
	Message() string
	Error() string
	StackTrace() string
}

type batchErr struct {
	code       string
	msg        string
	err        error
	violations []string
}

func (e *batchErr) Code() string {
	return e.code
}

func (e *batchErr) Message() string {
	return e.msg
}

func (e *batchErr) Error() string {
	if cause := errors.Cause(e.err); cause != nil && cause.Error() != e.msg {
		return fmt.Sprintf("batch err, code:%v, message:%v, cause:%v", e.code, e.msg, cause)
	}
	return fmt.Sprintf("batch err, code:%v, message:%v", e.code, e.msg)
}

func (e *batchErr) StackTrace() string {
	return fmt.Sprintf("%+v", e.err)
}

func (e *batchErr) Unwrap() error {
	return errors.Cause(e.err)
}

func (e *batchErr) Cause() error {
	return errors.Cause(e.err)
}

// NewBatchError create a BatchError. msg is a format string for args; when the last arg is an error
// without a matching verb in msg it becomes the cause of the BatchError.
func NewBatchError(code string, msg string, args ...interface{}) BatchError {
	var cause error
	if n := len(args); n > 0 {
		if e, ok := args[n-1].(error); ok && countVerbs(msg) < n {
			if be, ok := e.(BatchError); ok && n == 1 && msg == "" {
				return be
			}
			cause = e
			args = args[:n-1]
		}
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	be := &batchErr{code: code, msg: msg}
	if cause != nil {
		be.err = errors.WithStack(cause)
	} else {
		be.err = errors.New(msg)
	}
	return be
}

func countVerbs(format string) int {
	return strings.Count(format, "%") - 2*strings.Count(format, "%%")
}

// NewValidationError create a BatchError with code ErrCodeValidation carrying every violation
func NewValidationError(violations []string) BatchError {
	msg := fmt.Sprintf("%d validation error(s): %v", len(violations), strings.Join(violations, "; "))
	return &batchErr{
		code:       ErrCodeValidation,
		msg:        msg,
		err:        errors.New(msg),
		violations: append([]string(nil), violations...),
	}
}

// Violations return the validation messages carried by err, nil if err is not a validation error
func Violations(err error) []string {
	var be *batchErr
	if errors.As(err, &be) && be.code == ErrCodeValidation {
		return append([]string(nil), be.violations...)
	}
	return nil
}

// IsCode report whether err is a BatchError with the given code
func IsCode(err error, code string) bool {
	var be BatchError
	if errors.As(err, &be) {
		return be.Code() == code
	}
	return false
}

const (
	ErrCodeValidation     = "validation"
	ErrCodeTimeout        = "timeout"
	ErrCodeRetry          = "retry"
	ErrCodeRetryExhausted = "retry_exhausted"
	ErrCodeRunning        = "running"
	ErrCodeState          = "state"
	ErrCodeNotFound       = "not_found"
	ErrCodeDbFail         = "db_fail"
	ErrCodeConcurrency    = "concurrency"
	ErrCodeGeneral        = "general"
)

var (
	RunningError    BatchError = &batchErr{code: ErrCodeRunning, msg: "batch is already processing", err: errors.New("batch is already processing")}
	TimeoutError    BatchError = &batchErr{code: ErrCodeTimeout, msg: "Processing timeout", err: errors.New("Processing timeout")}
	NotInitError    BatchError = &batchErr{code: ErrCodeState, msg: "batch has not been initialized", err: errors.New("batch has not been initialized")}
	ConcurrentError BatchError = &batchErr{code: ErrCodeConcurrency, msg: "concurrent modification", err: errors.New("concurrent modification")}
	DbError         BatchError = &batchErr{code: ErrCodeDbFail, msg: "db fail", err: errors.New("db fail")}
	CompletedError  BatchError = &batchErr{code: ErrCodeState, msg: "batch has already completed, initialize a new one", err: errors.New("batch has already completed")}
)

// NoItemsViolation violation reported when a batch is initialized with no entity
const NoItemsViolation = "no items selected"
