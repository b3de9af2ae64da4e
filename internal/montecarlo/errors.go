package montecarlo

import "fmt"

// ConfigError reports an invalid simulation parameter. These are
// deterministic and caller-fixable; nothing is simulated once one is raised.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ComputeError reports a numerical defect discovered during or after path
// generation (NaN/Inf propagation, overflow from extreme inputs). Results
// containing one of these are never returned to callers.
type ComputeError struct {
	Stage  string
	Reason string
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("computation failed in %s: %s", e.Stage, e.Reason)
}
