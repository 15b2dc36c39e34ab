package pipeline

import "fmt"

// MissingProcessError reports an alert candidate that has no record in the
// process table. Candidates and table come from the same merge, so seeing one
// means a bug in the caller.
type MissingProcessError struct {
	PID int
}

func (e *MissingProcessError) Error() string {
	return fmt.Sprintf("alert candidate %d not found in process table", e.PID)
}
