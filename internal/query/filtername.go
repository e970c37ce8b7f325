package query

import "strings"

// ParseFilterName decodes a key such as "CN_name_OR_email" into its operator
// and the ordered list of property names.
func ParseFilterName(key string) (Operator, []string, error) {
	code, props, _ := strings.Cut(key, "_")

	op, ok := LookupOperator(code)
	if !ok {
		return "", nil, &FilterNameError{Key: key, Reason: "unknown operator " + code}
	}

	if strings.TrimSpace(props) == "" {
		return "", nil, &FilterNameError{Key: key, Reason: "no property name"}
	}

	names := splitOrGroup(props)
	if len(names) == 0 {
		return "", nil, &FilterNameError{Key: key, Reason: "no property name"}
	}
	return op, names, nil
}

// splitOrGroup splits on the whole separator; empty pieces are dropped.
func splitOrGroup(props string) []string {
	parts := strings.Split(props, OrSeparator)
	names := parts[:0]
	for _, p := range parts {
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}
