package worker

import "fmt"

// ErrorKind classifies a worker invocation failure.
type ErrorKind string

const (
	// KindSpawn means the worker process could not be started at all
	// (missing executable, permission denied).
	KindSpawn ErrorKind = "worker_spawn_error"
	// KindExecution means the worker ran but exited non-zero.
	KindExecution ErrorKind = "worker_execution_error"
	// KindTimeout means the worker was killed after exceeding its deadline.
	KindTimeout ErrorKind = "worker_timeout_error"
	// KindOutputParse means the worker claimed success but its output
	// matched neither the success nor the error envelope shape.
	KindOutputParse ErrorKind = "output_parse_error"
)

// Error is a classified worker-boundary failure. ExitCode and Stderr are
// populated for execution failures; Err carries the underlying cause when
// one exists.
type Error struct {
	Kind     ErrorKind
	Message  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Stderr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a worker Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	we, ok := err.(*Error)
	return ok && we.Kind == kind
}
