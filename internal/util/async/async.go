package async

import (
	"context"
	"errors"
	"fmt"
)

// Step is one named unit of startup work.
type Step struct {
	Name string
	Run  func(context.Context) error
}

// Parallel runs steps concurrently and waits for all of them. Failures are
// joined in step order, each prefixed with its step name.
//
// Example:
//
//	err := async.Parallel(ctx,
//	    async.Step{Name: "ledger", Run: loadLedger},
//	    async.Step{Name: "checkpoints", Run: checkCheckpoints},
//	)
func Parallel(ctx context.Context, steps ...Step) error {
	if len(steps) == 0 {
		return nil
	}

	type result struct {
		index int
		err   error
	}

	results := make(chan result, len(steps))
	for i, step := range steps {
		go func() {
			results <- result{index: i, err: step.Run(ctx)}
		}()
	}

	errs := make([]error, len(steps))
	for range len(steps) {
		res := <-results
		if res.err != nil {
			errs[res.index] = fmt.Errorf("%s: %w", steps[res.index].Name, res.err)
		}
	}
	return errors.Join(errs...)
}
