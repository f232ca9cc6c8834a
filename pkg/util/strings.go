// Package util collects small generic helpers shared across the planner and
// executor packages.
package util

import (
	"encoding/json"
	"fmt"
)

// Map applies f to every element of s and returns the results in order.
func Map[T, U any](f func(T) U, s []T) []U {
	result := make([]U, len(s))
	for i, v := range s {
		result[i] = f(v)
	}
	return result
}

// Filter returns the elements of s for which keep returns true, preserving order.
func Filter[T any](keep func(T) bool, s []T) []T {
	result := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}

// Contains reports whether s contains an element equal to v.
func Contains[T comparable](s []T, v T) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// Stringify renders v as JSON for logging, falling back to a Go-syntax dump
// if v is not marshalable.
func Stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
