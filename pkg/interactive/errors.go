package interactive

import "fmt"

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownInteraction means an event named no registered control.
	ErrUnknownInteraction Error = "unknown interaction"
	ErrDuplicateControl   Error = "duplicate control id"
	ErrEmptyControlID     Error = "control id cannot be empty"
	ErrTooManyRows        Error = "too many control rows"
	ErrRowTooWide         Error = "too many controls in one row"
	ErrNotRendered        Error = "session message not rendered yet"
	ErrIncompleteEnv      Error = "session environment needs a transport and an event source"
)

// HandlerError wraps a failure returned by a control handler.
type HandlerError struct {
	ControlID string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("control %q: %v", e.ControlID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// HookError wraps a failure returned by a pre or post hook.
type HookError struct {
	Stage string // "pre" or "post"
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook: %v", e.Stage, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }
