package domain

import (
	"strings"

	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

func parseEnum[T ~string](field, raw string, allowed []T) (T, error) {
	value := T(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range allowed {
		if candidate == value {
			return value, nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, candidate := range allowed {
		names = append(names, string(candidate))
	}
	var zero T
	return zero, apperrors.NewInvalidEnumValue(field, raw, names)
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
