package courseflow

import "fmt"

// ConfigLoadError reports a missing or malformed course configuration
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid course configuration: %v", e.Err)
	}
	return fmt.Sprintf("failed to load course configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}
