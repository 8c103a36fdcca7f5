package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the closed list of values a string enum accepts, in display order.
type set[T ~string] []T

func (s set[T]) contains(v T) bool {
	return slices.Contains(s, v)
}

func (s set[T]) values() []T {
	return slices.Clone(s)
}

// parse matches raw exactly after trimming.
func (s set[T]) parse(kind, raw string) (T, error) {
	v := T(strings.TrimSpace(raw))
	if s.contains(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}

// parseFold matches raw ignoring case, for values the order service may send in
// either case.
func (s set[T]) parseFold(kind, raw string) (T, error) {
	trimmed := strings.TrimSpace(raw)
	for _, v := range s {
		if strings.EqualFold(string(v), trimmed) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
