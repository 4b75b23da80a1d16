package config

type WorkerKeyStruct struct {
	// AutoSubmitLock is held by the replica currently sweeping expired attempts.
	AutoSubmitLock string
}

var WorkerKey = &WorkerKeyStruct{
	AutoSubmitLock: "lock:auto_submit_sweep",
}
