package services

import "errors"

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("access code not found")
	ErrExpired          = errors.New("access code expired")
	ErrAlreadyUsed      = errors.New("access code already used")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrExhaustedRetries = errors.New("unable to generate unique code, try again")
)

// EventPublisher receives notifications about access codes of a restaurant.
type EventPublisher interface {
	Publish(restaurantID uint, event string, data interface{})
}

const (
	EventCodeIssued    = "access_code_issued"
	EventCodeValidated = "access_code_validated"
)
