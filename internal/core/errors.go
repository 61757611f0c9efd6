package core

import (
	"errors"
	"fmt"

	"github.com/git-pkgs/upstream/client"
)

// ErrNotFound is returned when a remote package is not found.
var ErrNotFound = errors.New("not found")

// HTTPError represents an HTTP error response.
type HTTPError = client.HTTPError

// NotFoundError wraps ErrNotFound with the handler and remote identity.
type NotFoundError struct {
	Handler string
	Name    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: package %s not found", e.Handler, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ContractError marks a programmer or configuration error. Dispatch aborts
// on it instead of swallowing it.
type ContractError struct {
	Handler string
	Err     error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %v", e.Handler, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// IsContractError reports whether err carries a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
