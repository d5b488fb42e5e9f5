package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *RunnerError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *RunnerError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *RunnerError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Workspace lifecycle errors

func PreconditionFailed(message string) *RunnerError {
	return New(CategoryPrecondition, SeverityFatal, message)
}

func WorkspaceError(operation string, cause error) *RunnerError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func CallbackFailed(identifier string, cause error) *RunnerError {
	return Wrap(cause, CategoryCallback, SeverityError, "on-create callback failed").
		WithContext("identifier", identifier)
}

// LogArea errors

func CollectFailed(path string, cause error) *RunnerError {
	return Wrap(cause, CategoryCollaborator, SeverityError, "log collection failed").
		WithContext("path", path)
}

func UploadFailed(kind string, cause error) *RunnerError {
	return Wrap(cause, CategoryCollaborator, SeverityError, "upload failed").
		WithContext("kind", kind)
}

func UploadTransient(kind string, cause error) *RunnerError {
	return WrapRetryable(cause, CategoryCollaborator, SeverityWarning, "transient upload error").
		WithContext("kind", kind)
}

// Execution errors

func ExecutionFailed(identifier string, cause error) *RunnerError {
	return Wrap(cause, CategoryExecution, SeverityError, "test execution failed").
		WithContext("identifier", identifier)
}

func SuiteFailed(failed, errored int) *RunnerError {
	return New(CategoryExecution, SeverityError, "suite failed").
		WithContext("failed", failed).
		WithContext("errors", errored)
}

// Internal errors

func InternalError(message string, cause error) *RunnerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
