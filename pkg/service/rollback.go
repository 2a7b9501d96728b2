package service

import "github.com/f0mster/reqrep/interfaces/logger"

type undo struct {
	what string
	fn   func() error
}

// rollback collects the release steps of a half built endpoint.
type rollback struct {
	steps []undo
}

func (r *rollback) push(what string, fn func() error) {
	r.steps = append(r.steps, undo{what: what, fn: fn})
}

// run releases everything in reverse order. Failures are logged and do not
// stop the remaining steps.
func (r *rollback) run(log logger.Logger, serviceName string) {
	for i := len(r.steps) - 1; i >= 0; i-- {
		if err := r.steps[i].fn(); err != nil {
			log.Error(err, "rollback failed", serviceName, "", r.steps[i].what)
		}
	}
	r.steps = nil
}
