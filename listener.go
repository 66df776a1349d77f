package bulkop

// BatchListener batch listener
type BatchListener interface {
	//BeforeBatch execute before the driver loop starts, an error prevents any item from being processed
	BeforeBatch(snapshot *Snapshot) BatchError
	//AfterBatch execute after the driver loop exits, whether exhausted or cancelled
	AfterBatch(snapshot *Snapshot) BatchError
}

// Observer receives a snapshot after every change of a run, synchronously on the goroutine that changed it
type Observer interface {
	OnProgress(snapshot *Snapshot)
}

// ObserverFunc adapt a function to Observer
type ObserverFunc func(snapshot *Snapshot)

func (f ObserverFunc) OnProgress(snapshot *Snapshot) {
	f(snapshot)
}
