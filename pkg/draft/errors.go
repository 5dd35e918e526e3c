package draft

import (
	"errors"
)

// Messages shown after Apply.
const (
	MessageApplied      = "Application updated successfully\nNOTE: Wait for a few seconds to apply new changes"
	MessageApplyFailed  = "Failed to update application"
	MessageMountInUse   = "Mounting path already used"
	MessageModeReadOnly = "Sorry, for change deployment strategy you need to delete and re-create the application"
)

var (
	// ErrDeploymentModeImmutable is returned by ChangeDeploymentStrategy.
	ErrDeploymentModeImmutable = errors.New(MessageModeReadOnly)

	// ErrUnknownKey is returned when a surrogate key is not in the list.
	ErrUnknownKey = errors.New("unknown entry key")

	// ErrNotLoaded is returned by Apply before the first successful Load.
	ErrNotLoaded = errors.New("application is not loaded")
)

// UpdateError is a rejected updateApplication mutation. The draft is left
// as it was.
type UpdateError struct {
	// Message is the server's message.
	Message string
	Err     error
}

func (e *UpdateError) Error() string {
	return MessageApplyFailed + "\n" + e.Message
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}
