// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness constraint was hit by a concurrent writer.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the caller supplied bad or missing input.
// Wrap it with the client-safe message: fmt.Errorf("%w: price is required", ErrValidation).
var ErrValidation = errors.New("validation")

// ErrNotConfigured indicates a tenant lacks a credential or calendar id the
// operation needs. It is a deployment problem reported as a client error.
var ErrNotConfigured = errors.New("not configured")

// ErrInvalidCredentials is returned for every failed login, whatever the cause.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnauthorized indicates a missing, malformed or expired session token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates a valid session that may not act on the requested tenant.
var ErrForbidden = errors.New("forbidden")
