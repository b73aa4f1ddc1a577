package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when the requested product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a payload fails the guard checks.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError lists the rejected fields. It matches ErrInvalidInput
// under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

type fieldErrors map[string]string

func (f fieldErrors) check(field string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		f[field] = err.Error()
		return
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		f[field] = "must not be empty"
	default:
		f[field] = fmt.Sprintf("failed on the '%s' tag", e.Tag())
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
