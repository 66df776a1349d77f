package status

// ItemStatus status of a single item within a batch run
type ItemStatus string

const (
	//PENDING item is waiting for its turn
	PENDING ItemStatus = "PENDING"
	//PROCESSING an attempt of the operation is in flight
	PROCESSING ItemStatus = "PROCESSING"
	//RETRYING the last attempt failed and the item waits for the next one
	RETRYING ItemStatus = "RETRYING"
	//COMPLETED the operation succeeded for the item
	COMPLETED ItemStatus = "COMPLETED"
	//ERROR the item failed terminally
	ERROR ItemStatus = "ERROR"
)

var transitions = map[ItemStatus][]ItemStatus{
	PENDING:    {PROCESSING},
	PROCESSING: {RETRYING, COMPLETED, ERROR},
	RETRYING:   {PROCESSING},
}

// CanTransit reports whether an item may move from s to next
func (s ItemStatus) CanTransit(next ItemStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s ItemStatus) Terminal() bool {
	return s == COMPLETED || s == ERROR
}

// InFlight reports whether the item is being worked on
func (s ItemStatus) InFlight() bool {
	return s == PROCESSING || s == RETRYING
}

// Phase phase of a whole batch run
type Phase string

const (
	//PhasePreparing records are built (or validation failed) and the run waits to be started
	PhasePreparing Phase = "PREPARING"
	//PhaseProcessing the driver loop is running
	PhaseProcessing Phase = "PROCESSING"
	//PhaseCompleted the driver loop exited, either exhausted or cancelled
	PhaseCompleted Phase = "COMPLETED"
)

var phases = map[Phase]int{
	PhasePreparing:  0,
	PhaseProcessing: 1,
	PhaseCompleted:  2,
}

// Before reports whether phase p comes strictly before other
func (p Phase) Before(other Phase) bool {
	i1, ok1 := phases[p]
	i2, ok2 := phases[other]
	if ok1 && ok2 {
		return i1 < i2
	}
	return false
}
