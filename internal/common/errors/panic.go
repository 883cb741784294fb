package errors

import "fmt"

// PanicError carries a recovered panic value as an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Value: recovered}
}

// FromPanic converts a value returned by recover() into an INTERNAL_FAULT
// StandardError. It returns nil for a nil value.
func FromPanic(recovered any) *StandardError {
	if recovered == nil {
		return nil
	}
	return NewInternalFaultError(panicError(recovered))
}
