// Package idgen generates the opaque identifiers used throughout the
// submission lifecycle: the SDES correlation id and, when the caller omits
// one, the submission reference.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings —
// time-sortable and globally unique, the convention used for every
// generated id in this service.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every id.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the service-wide default generator: UUIDv7.
var Default Generator = UUIDv7()

// New produces an id using the Default generator.
func New() string {
	return Default()
}
