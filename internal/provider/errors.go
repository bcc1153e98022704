package provider

import (
	"errors"
	"fmt"
)

// ProviderError is a failure reported by the DNS provider during a list,
// create, update or delete call.
type ProviderError struct {
	Operation string
	Name      string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("dns provider %s %s: %v", e.Operation, e.Name, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError attaches operation context. A nil err stays nil.
func WrapError(operation, name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{
		Operation: operation,
		Name:      name,
		Err:       err,
	}
}

// IsProviderError reports whether err came from the DNS provider.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
