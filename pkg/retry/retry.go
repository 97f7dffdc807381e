// Package retry runs fallible actions repeatedly until they succeed or one
// of the configured strategies stops the attempt chain.
package retry

// Action is a fallible operation that may be run more than once.
type Action func() error

// Retrier bundles a fixed set of strategies for reuse across calls.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier backed by the provided strategies. With no
// strategies, actions are retried in a tight loop until they succeed.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry runs action until it succeeds or any strategy declines another
// attempt, returning the number of attempts made alongside the final error.
//
// Strategies are consulted in order on every failure, so strategies that
// induce delays belong at the end of the list.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		for _, s := range strategies {
			if !s(attempts, err) {
				return attempts, err
			}
		}
	}
}
