package store

import "errors"

// Typed failures the services branch on. Anything else coming out of
// the store is an underlying persistence failure and propagates wrapped.
var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicateUsername = errors.New("store: username already taken")
	ErrPostNotFound      = errors.New("store: post not found")
)
