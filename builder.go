package bulkop

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	//DefaultMaxRetries number of retries after the first attempt, up to 3 attempts in total
	DefaultMaxRetries = 2
	//DefaultAttemptTimeout hard limit of a single attempt
	DefaultAttemptTimeout = 15 * time.Second
	//DefaultBackoffUnit backoff before retry n is n times this unit
	DefaultBackoffUnit = time.Second
	//DefaultEstimatePerItem duration assumed per item before any item finished
	DefaultEstimatePerItem = 2 * time.Second
)

// Backoff wait before the given retry, attempt starts at 1
type Backoff func(attempt int) time.Duration

// LinearBackoff wait attempt*unit before each retry
func LinearBackoff(unit time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * unit
	}
}

type policy struct {
	maxRetries      int
	attemptTimeout  time.Duration
	backoff         Backoff
	itemDelay       time.Duration
	startDelay      time.Duration
	estimatePerItem time.Duration
}

// ProcessorBuilder configure a BatchProcessor, created by NewProcessor
type ProcessorBuilder struct {
	name       string
	operation  Operation
	validators []Validator
	policy     policy
	clock      clockwork.Clock
	listeners  []BatchListener
	observers  []Observer
	params     *BatchParams
}

// NewProcessor initialize a processor builder, name identifies the bulk action
func NewProcessor(name string) *ProcessorBuilder {
	if name == "" {
		panic("processor name must not be empty")
	}
	return &ProcessorBuilder{
		name: name,
		policy: policy{
			maxRetries:      DefaultMaxRetries,
			attemptTimeout:  DefaultAttemptTimeout,
			backoff:         LinearBackoff(DefaultBackoffUnit),
			estimatePerItem: DefaultEstimatePerItem,
		},
		clock:  clockwork.NewRealClock(),
		params: NewBatchParams(),
	}
}

func (builder *ProcessorBuilder) Operation(op Operation) *ProcessorBuilder {
	builder.operation = op
	return builder
}

// Validator accept Validator, ValidatorFunc or func(Entity) []string
func (builder *ProcessorBuilder) Validator(validators ...interface{}) *ProcessorBuilder {
	for _, v := range validators {
		switch vv := v.(type) {
		case Validator:
			builder.validators = append(builder.validators, vv)
		case func(entity Entity) []string:
			builder.validators = append(builder.validators, ValidatorFunc(vv))
		default:
			panic(fmt.Sprintf("not supported validator:%+v for processor:%v", v, builder.name))
		}
	}
	return builder
}

func (builder *ProcessorBuilder) MaxRetries(retries int) *ProcessorBuilder {
	if retries < 0 {
		panic("max retries must not be negative")
	}
	builder.policy.maxRetries = retries
	return builder
}

// AttemptTimeout limit of each attempt, zero or negative disables the timeout
func (builder *ProcessorBuilder) AttemptTimeout(timeout time.Duration) *ProcessorBuilder {
	builder.policy.attemptTimeout = timeout
	return builder
}

func (builder *ProcessorBuilder) Backoff(backoff Backoff) *ProcessorBuilder {
	if backoff == nil {
		backoff = LinearBackoff(0)
	}
	builder.policy.backoff = backoff
	return builder
}

// ItemDelay pause between two successive items
func (builder *ProcessorBuilder) ItemDelay(delay time.Duration) *ProcessorBuilder {
	builder.policy.itemDelay = delay
	return builder
}

// StartDelay pause between Start and the first item
func (builder *ProcessorBuilder) StartDelay(delay time.Duration) *ProcessorBuilder {
	builder.policy.startDelay = delay
	return builder
}

func (builder *ProcessorBuilder) EstimatePerItem(d time.Duration) *ProcessorBuilder {
	builder.policy.estimatePerItem = d
	return builder
}

func (builder *ProcessorBuilder) Clock(clock clockwork.Clock) *ProcessorBuilder {
	if clock == nil {
		panic("clock must not be nil")
	}
	builder.clock = clock
	return builder
}

// Param attach a parameter to every run of the processor
func (builder *ProcessorBuilder) Param(key string, value interface{}) *ProcessorBuilder {
	builder.params.Put(key, value)
	return builder
}

// Listener accept BatchListener, Observer or func(*Snapshot)
func (builder *ProcessorBuilder) Listener(listener ...interface{}) *ProcessorBuilder {
	for _, l := range listener {
		valid := false
		if bl, ok := l.(BatchListener); ok {
			builder.listeners = append(builder.listeners, bl)
			valid = true
		}
		if ob, ok := l.(Observer); ok {
			builder.observers = append(builder.observers, ob)
			valid = true
		}
		if fn, ok := l.(func(snapshot *Snapshot)); ok {
			builder.observers = append(builder.observers, ObserverFunc(fn))
			valid = true
		}
		if !valid {
			panic(fmt.Sprintf("not supported listener:%+v for processor:%v", l, builder.name))
		}
	}
	return builder
}

func (builder *ProcessorBuilder) Build() *BatchProcessor {
	if builder.operation == nil {
		panic(fmt.Sprintf("operation must be set for processor:%v", builder.name))
	}
	return &BatchProcessor{
		name:       builder.name,
		operation:  builder.operation,
		validators: builder.validators,
		policy:     builder.policy,
		clock:      builder.clock,
		listeners:  builder.listeners,
		observers:  builder.observers,
		params:     builder.params,
	}
}
