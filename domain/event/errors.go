package event

import (
	"errors"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

var (
	// ErrInvalidEvent is returned when an event lacks a policy or type.
	ErrInvalidEvent = fault.New(fault.ErrInvalidInput, "invalid event")

	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
)
