package schema

import "strings"

// Resolution is the result of walking a property path
type Resolution struct {
	// Type is the leaf type. When the path ends on a collection it is the
	// collection's element type.
	Type Type
	// Subquery is the element type of the one-to-many relation crossed by
	// the path, if any.
	Subquery *Type
}

// Resolve walks a dot-separated property path starting at the root entity.
//
// Paths containing "count(" resolve to Integer and paths containing any other
// "(" resolve to Decimal without consulting the schema. At most one
// collection may be crossed; a second one yields ErrUnsupportedPath.
func Resolve(p Provider, root, path string) (Resolution, error) {
	if strings.Contains(path, "count(") {
		return Resolution{Type: Integer}, nil
	}
	if strings.Contains(path, "(") {
		return Resolution{Type: Decimal}, nil
	}

	var res Resolution
	current := root
	for _, segment := range strings.Split(path, ".") {
		entity, err := p.Entity(current)
		if err != nil {
			return Resolution{}, &ResolutionError{Entity: current, Segment: segment, Path: path, Err: err}
		}

		prop, ok := entity.Property(segment)
		if !ok {
			return Resolution{}, &ResolutionError{Entity: current, Segment: segment, Path: path, Err: ErrUnknownProperty}
		}

		t := prop.Type
		if prop.IsCollection() {
			if prop.Elem == nil {
				return Resolution{}, &ResolutionError{Entity: current, Segment: segment, Path: path, Err: ErrMissingElementType}
			}
			if res.Subquery != nil {
				return Resolution{}, &ResolutionError{Entity: current, Segment: segment, Path: path, Err: ErrUnsupportedPath}
			}
			elem := *prop.Elem
			res.Subquery = &elem
			t = elem
		}

		res.Type = t
		current = t.Ref
	}

	return res, nil
}
