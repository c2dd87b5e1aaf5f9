package gateway

import (
	"fmt"

	"github.com/rankgate/rankgate/transport"
)

// NotFoundError indicates the named leaderboard does not exist remotely.
// Terminal for the query.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("leaderboard %q not found", e.Name)
}

// RemoteFailureError indicates the remote service answered a protocol step
// with a non-success status. Terminal for the query; the remote's status is
// surfaced verbatim.
type RemoteFailureError struct {
	Step   string
	Status transport.Status
}

func (e *RemoteFailureError) Error() string {
	return fmt.Sprintf("%s failed with remote status %s", e.Step, e.Status)
}
