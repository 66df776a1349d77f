package bulkop

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
)

func TestBatchErr_Format(t *testing.T) {
	batchErr := NewBatchError(ErrCodeGeneral, "new error")
	assert.Equal(t, "new error", batchErr.Message())
	assert.Equal(t, "batch err, code:general, message:new error", batchErr.Error())
	assert.Equal(t, true, strings.Contains(batchErr.StackTrace(), "TestBatchErr_Format"))

	err := fmt.Errorf("some error raised from db")
	batchErr2 := NewBatchError(ErrCodeDbFail, "wrap error", err)
	assert.Equal(t, "wrap error", batchErr2.Message())
	assert.Equal(t, true, strings.Contains(batchErr2.Error(), "cause:some error raised from db"))
	assert.Equal(t, true, errors.Is(batchErr2, err))

	batchErr3 := NewBatchError(ErrCodeDbFail, "wrap error:%v", err)
	assert.Equal(t, "wrap error:some error raised from db", batchErr3.Message())

	batchErr4 := NewBatchError(ErrCodeGeneral, "item:%v failed", "A", err)
	assert.Equal(t, "item:A failed", batchErr4.Message())
	assert.Equal(t, true, errors.Is(batchErr4, err))
}

func TestNewBatchError_KeepsBatchError(t *testing.T) {
	be := NewBatchError(ErrCodeGeneral, "", TimeoutError)
	assert.Equal(t, TimeoutError, be)
}

func TestViolations(t *testing.T) {
	err := NewValidationError([]string{"item #1 (A): missing id", "item #2 (B): status is live"})
	assert.Equal(t, ErrCodeValidation, err.Code())
	assert.Equal(t, 2, len(Violations(err)))
	assert.Equal(t, true, IsCode(errors.Wrap(err, "init"), ErrCodeValidation))
	assert.Equal(t, 0, len(Violations(TimeoutError)))
	assert.Equal(t, 0, len(Violations(fmt.Errorf("plain"))))
}
