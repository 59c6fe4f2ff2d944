package approval

import "fmt"

// ErrEmptyBatch is returned when a batch is constructed with no requests.
var ErrEmptyBatch = fmt.Errorf("approval batch has no requests")

// ErrDuplicateRequest is returned when a batch repeats a request id.
var ErrDuplicateRequest = fmt.Errorf("duplicate approval request id")

// ErrNoActiveBatch is returned when a decision arrives with the slot empty.
var ErrNoActiveBatch = fmt.Errorf("no active approval batch")

// ErrUnknownRequest is returned when a decision names a request id the
// active batch does not contain.
var ErrUnknownRequest = fmt.Errorf("unknown approval request id")
