package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrPropertyResolution is matched by every ResolutionError
	ErrPropertyResolution = errors.New("property resolution failed")

	// ErrUnknownEntity is returned for lookups of undeclared entities
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownProperty is returned when an entity has no property with the requested name
	ErrUnknownProperty = errors.New("unknown property")

	// ErrMissingElementType is returned when a collection declares no element type
	ErrMissingElementType = errors.New("collection has no declared element type")

	// ErrUnsupportedPath is returned when a path crosses more than one collection
	ErrUnsupportedPath = errors.New("path crosses more than one collection")
)

// ResolutionError reports a failure to walk a property path
type ResolutionError struct {
	Entity  string
	Segment string
	Path    string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q on %s at segment %q: %v", e.Path, e.Entity, e.Segment, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is makes every ResolutionError match ErrPropertyResolution
func (e *ResolutionError) Is(target error) bool {
	return target == ErrPropertyResolution
}

// EnumLookupError is returned when a value names no constant of its enum
type EnumLookupError struct {
	Enum  string
	Value string
}

func (e *EnumLookupError) Error() string {
	return fmt.Sprintf("no constant %q in enum %s", e.Value, e.Enum)
}
