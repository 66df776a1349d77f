package bulkop

import (
	"fmt"
	"time"

	"github.com/chararch/bulkop/status"
)

// percentMultiplier converts a ratio to a percentage
const percentMultiplier = 100

// Progress aggregated view over the records of a run, recomputed for every snapshot
type Progress struct {
	Total              int
	Completed          int
	Errors             int
	InFlight           int
	Pending            int
	PercentComplete    float64
	Elapsed            time.Duration
	EstimatedRemaining time.Duration
}

// Finished number of items in a terminal state
func (p Progress) Finished() int {
	return p.Completed + p.Errors
}

// Summary human readable outcome, e.g. "2 succeeded, 1 failed, 0 not processed"
func (p Progress) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d not processed", p.Completed, p.Errors, p.Total-p.Finished())
}

func computeProgress(records []ProcessingRecord, start, end, now time.Time, estimatePerItem time.Duration) Progress {
	p := Progress{Total: len(records)}
	var spent time.Duration
	for i := range records {
		rec := &records[i]
		switch {
		case rec.Status == status.COMPLETED:
			p.Completed++
		case rec.Status == status.ERROR:
			p.Errors++
		case rec.Status.InFlight():
			p.InFlight++
		default:
			p.Pending++
		}
		if rec.Status.Terminal() {
			spent += rec.Duration(now)
		}
	}
	if p.Total > 0 {
		p.PercentComplete = float64(p.Finished()) / float64(p.Total) * percentMultiplier
		if p.PercentComplete > percentMultiplier {
			p.PercentComplete = percentMultiplier
		} else if p.PercentComplete < 0 {
			p.PercentComplete = 0
		}
	}
	if !start.IsZero() {
		if !end.IsZero() {
			p.Elapsed = end.Sub(start)
		} else {
			p.Elapsed = now.Sub(start)
		}
	}
	perItem := estimatePerItem
	if finished := p.Finished(); finished > 0 && spent > 0 {
		perItem = spent / time.Duration(finished)
	}
	p.EstimatedRemaining = perItem * time.Duration(p.Total-p.Finished())
	return p
}
