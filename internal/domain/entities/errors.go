package entities

import "errors"

// Sentinel errors shared by gateways, services and the HTTP layer
var (
	ErrInvalid      = errors.New("invalid input")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrIO           = errors.New("i/o failure")
	ErrNotFound     = errors.New("not found")
	ErrIncompatible = errors.New("incompatible platform version")
	ErrBlocked      = errors.New("installation blocked")
)
