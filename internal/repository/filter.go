package repository

import (
	"errors"
	"strings"

	"schoollend/internal/models"
)

var (
	ErrDeviceNotFound       = errors.New("device not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrDuplicateReservation = errors.New("reservation id already exists")
)

// filter keeps the elements accepted by keep, in their original order.
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// containsFold is a case-insensitive substring match; an empty needle matches everything.
func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchesExact applies an exact-match selector where "" and "all" match everything.
func matchesExact(value, selected string) bool {
	selected = strings.TrimSpace(selected)
	if selected == "" || strings.EqualFold(selected, models.FilterAll) {
		return true
	}
	return value == selected
}
