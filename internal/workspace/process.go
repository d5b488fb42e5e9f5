package workspace

import "os"

// Environment variables published to test processes.
const (
	EnvGlobalLogs       = "GLOBAL_LOGS"
	EnvGlobalArtifacts  = "GLOBAL_ARTIFACTS"
	EnvLogPath          = "LOG_PATH"
	EnvArtifactPath     = "ARTIFACT_PATH"
	EnvTestArtifactPath = "TEST_ARTIFACT_PATH" // deprecated alias of ARTIFACT_PATH
)

// Process is the process-wide state a Workspace changes: the working
// directory and the environment.
type Process interface {
	Getwd() (string, error)
	Chdir(dir string) error
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// OSProcess is the Process of the running program.
type OSProcess struct{}

func (OSProcess) Getwd() (string, error)         { return os.Getwd() }
func (OSProcess) Chdir(dir string) error         { return os.Chdir(dir) }
func (OSProcess) Setenv(key, value string) error { return os.Setenv(key, value) }
func (OSProcess) Unsetenv(key string) error      { return os.Unsetenv(key) }

// push makes dir the current working directory and records it as the top frame.
func (w *Workspace) push(dir string) error {
	if err := w.proc.Chdir(dir); err != nil {
		return err
	}
	w.frames = append(w.frames, dir)
	return nil
}

// pop drops the top frame and returns to the one below it, or to the top
// directory when no frame is left.
func (w *Workspace) pop() error {
	if len(w.frames) == 0 {
		return nil
	}
	w.frames = w.frames[:len(w.frames)-1]
	return w.proc.Chdir(w.Current())
}

// Current returns the directory the workspace last made current.
func (w *Workspace) Current() string {
	if len(w.frames) == 0 {
		return w.topDir
	}
	return w.frames[len(w.frames)-1]
}
