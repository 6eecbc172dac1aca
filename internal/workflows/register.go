package workflows

import "go.temporal.io/sdk/worker"

// Register attaches every workflow to the worker.
func Register(w worker.Worker) {
	w.RegisterWorkflow(OriginalityWorkflow)
	w.RegisterWorkflow(PaperAssessWorkflow)
}
