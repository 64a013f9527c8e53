package topiccache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/topiccache/store"
)

var (
	// ErrCacheClosed is returned by operations on a closed cache.
	ErrCacheClosed = errors.New("topic cache is closed")

	// ErrNotInitialized is returned when Lookup or Insert is called before
	// Initialize has completed.
	ErrNotInitialized = errors.New("topic cache is not initialized")

	// ErrCapacityInconsistency indicates that a tier's counted occupancy
	// diverged from its actual member count. Fatal at startup; at runtime it
	// forces a full reload from the persistence gateway. Never swallowed.
	ErrCapacityInconsistency = errors.New("capacity inconsistency")
)

// ErrInvalidConfig reports a rejected configuration value.
type ErrInvalidConfig struct {
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid cache configuration: %s", e.Reason)
}

// translateError maps internal errors onto the public error contract.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var inc *store.InconsistencyError
	if errors.As(err, &inc) {
		return fmt.Errorf("%w: %w", ErrCapacityInconsistency, err)
	}
	return err
}
