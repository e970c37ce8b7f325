package query

import (
	"errors"
	"fmt"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

var (
	// ErrInvalidFilterName is matched by every FilterNameError
	ErrInvalidFilterName = errors.New("invalid filter name")

	// ErrValueCoercion is matched by every CoercionError
	ErrValueCoercion = errors.New("value coercion failed")

	// ErrInvalidPagination is returned for unparseable or out of range paging parameters
	ErrInvalidPagination = errors.New("invalid pagination parameter")
)

// FilterNameError reports a malformed filter key
type FilterNameError struct {
	Key    string
	Reason string
}

func (e *FilterNameError) Error() string {
	return fmt.Sprintf("filter name %q is malformed: %s", e.Key, e.Reason)
}

func (e *FilterNameError) Is(target error) bool {
	return target == ErrInvalidFilterName
}

// CoercionError reports a raw value that cannot be converted to its target type
type CoercionError struct {
	Value string
	Type  schema.Type
	Err   error
}

func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, e.Type, e.Err)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Value, e.Type)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

func (e *CoercionError) Is(target error) bool {
	return target == ErrValueCoercion
}
