package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrUpstream         = errors.New("upstream service failed")
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrUnavailable      = errors.New("service not configured")
)

// ValidationError carries a field-level message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing resource and matches ErrNotFound.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource, id string) error {
	return NotFoundError{Resource: resource, ID: id}
}

// OutOfStockError reports a line whose requested quantity exceeds stock.
type OutOfStockError struct {
	ProductID string
	Size      string
	Color     string
	Available int
	Requested int
}

func (e OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s/%s): available %d, requested %d",
		e.ProductID, e.Size, e.Color, e.Available, e.Requested)
}

func (e OutOfStockError) Is(target error) bool {
	return target == ErrValidation
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
