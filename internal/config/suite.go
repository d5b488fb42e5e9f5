package config

import "time"

// Suite is the ordered list of tests executed inside one workspace.
type Suite struct {
	Name  string     `yaml:"name"`
	Tests []TestSpec `yaml:"tests"`
}

// TestSpec describes one test execution. Several specs may share an ID; they
// then run in the same test directory and only the first one checks out.
type TestSpec struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name,omitempty"`
	Command     string            `yaml:"command"`
	Execute     []string          `yaml:"execute,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	Checkout    *CheckoutSpec     `yaml:"checkout,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (t TestSpec) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// CheckoutSpec materializes sources when a test directory is first created.
// Repository is cloned with go-git; Commands run afterwards through the shell.
type CheckoutSpec struct {
	Repository string   `yaml:"repository,omitempty"`
	Ref        string   `yaml:"ref,omitempty"`
	Depth      int      `yaml:"depth,omitempty"`
	Commands   []string `yaml:"commands,omitempty"`
}
