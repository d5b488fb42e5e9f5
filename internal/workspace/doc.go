// Package workspace manages the on-disk working area of a single test run.
//
// A Workspace owns three directories under the directory the process was
// started in (the top directory):
//
//	<top>/workspace/   working tree, one uniquely named directory per test identifier
//	<top>/logs/        run-wide logs (GLOBAL_LOGS)
//	<top>/artifacts/   run-wide artifacts (GLOBAL_ARTIFACTS)
//
// Entering the workspace changes the process working directory into the
// working tree. Each test directory opened with OpenTestDirectory pushes a
// frame on top of it and publishes LOG_PATH, ARTIFACT_PATH and
// TEST_ARTIFACT_PATH; closing it uploads the directory's logs and artifacts
// through the LogArea and pops back to the working tree. Exiting returns to
// the top directory, archives the tree to <top>/workspace.tar.gz and uploads
// the run-wide logs, artifacts and the archive.
//
// The working directory and environment are process-wide, so a Workspace
// touches them only through a Process and only one test directory may be
// open at a time. A Workspace is not safe for concurrent use.
package workspace
