package encoding

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAttempts is returned when the table has no entry for a policy and media type.
var ErrNoAttempts = errors.New("no encoder attempts configured")

// EncodeFailedError reports that a tier's encoder ran and failed.
type EncodeFailedError struct {
	Tier   Tier
	Detail string
	Err    error
}

func (e *EncodeFailedError) Error() string {
	return fmt.Sprintf("%s encode failed: %s", e.Tier, e.Detail)
}

func (e *EncodeFailedError) Unwrap() error {
	return e.Err
}

// EncodeTimeoutError reports that a tier exceeded its time budget.
type EncodeTimeoutError struct {
	Tier    Tier
	Timeout time.Duration
}

func (e *EncodeTimeoutError) Error() string {
	return fmt.Sprintf("%s encode timed out after %s", e.Tier, e.Timeout)
}
