package services

import "errors"

// Domain errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrNotAuthorized      = errors.New("not authorized to modify this resource")
	ErrEmailExists        = errors.New("email already in use by another account")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInterestExists     = errors.New("you have already expressed interest in this property")
	ErrPropertyHasNoAgent = errors.New("property has no listing agent")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrNoFields           = errors.New("no valid fields provided for update")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoGeocoder         = errors.New("coordinates are required when geocoding is not configured")
)
