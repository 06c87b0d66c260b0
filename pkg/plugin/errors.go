package plugin

import "fmt"

// UnknownImplementationError reports a configuration selector naming an
// implementation that is not present in the interface's registry entry.
type UnknownImplementationError struct {
	Interface string
	Name      string
}

func (e *UnknownImplementationError) Error() string {
	return fmt.Sprintf("no implementation %q registered for interface %q", e.Name, e.Interface)
}

// NoImplementationsError reports that an interface's registry entry is empty:
// no implementation was ever discovered. It is distinct from
// UnknownImplementationError so callers can tell a misspelled selector from a
// missing plugin set.
type NoImplementationsError struct {
	Interface string
}

func (e *NoImplementationsError) Error() string {
	return fmt.Sprintf("no implementations available for interface %q", e.Interface)
}

// UnknownInterfaceError reports an operation against an interface name that
// was never registered.
type UnknownInterfaceError struct {
	Interface string
}

func (e *UnknownInterfaceError) Error() string {
	return fmt.Sprintf("unknown pluggable interface %q", e.Interface)
}
