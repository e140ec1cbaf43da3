package handler

import "fmt"

// ConfigurationError reports a missing or malformed handler spec
type ConfigurationError struct {
	Spec string
	Msg  string
}

func (e *ConfigurationError) Error() string {
	if e.Spec == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %q", e.Msg, e.Spec)
}

// ResolutionError reports a spec that names no registered handler
type ResolutionError struct {
	Module string
	Name   string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to import module: %s", e.Module)
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid handler %s in module %s: %v", e.Name, e.Module, e.Err)
	}
	return fmt.Sprintf("no handler %s in module %s", e.Name, e.Module)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
