// Package runner executes a suite sequentially inside a workspace.
//
// Every test runs in the test directory bound to its ID. The first time an
// ID is seen its checkout (git clone plus shell commands) prepares the
// directory; later tests with the same ID reuse it. Pre-execution steps and
// the test command run through /bin/sh with their output written to
// LOG_PATH/test_output.log, which the workspace folds into the run-wide
// full_execution.log.
package runner
