package workspace

import (
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

// Lifecycle errors. Returned errors carry extra context and match these with errors.Is.
var (
	ErrWorkspaceNotCreated = rerrors.PreconditionFailed("workspace not created")
	ErrWorkspaceActive     = rerrors.PreconditionFailed("workspace still active")
	ErrDirectoryActive     = rerrors.PreconditionFailed("test directory already open")
	ErrAlreadyEntered      = rerrors.PreconditionFailed("workspace already entered")
	ErrAlreadyExited       = rerrors.PreconditionFailed("workspace already exited")
)

// precondition returns a copy of sentinel annotated with the operation.
func precondition(sentinel *rerrors.RunnerError, op string) *rerrors.RunnerError {
	return rerrors.PreconditionFailed(sentinel.Message).WithContext("operation", op)
}
