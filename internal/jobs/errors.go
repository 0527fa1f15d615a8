package jobs

import (
	"errors"
	"fmt"
)

var (
	ErrPermanent  = errors.New("permanent job failure")
	ErrNoHandler  = errors.New("no handler registered")
	ErrNotClaimed = errors.New("job is no longer claimed by this worker")
)

// Permanent marks err so that the job is dead-lettered straight away
// instead of being retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
