// Package storage defines the output backends a fusion run writes to.
package storage

import "github.com/geopose/geopose/internal/model"

// Backend is the interface all output implementations must satisfy.
type Backend interface {
	// Init prepares the backend (directories, schema).
	Init() error

	// WriteRun persists one complete run result.
	WriteRun(res *model.RunResult) error

	// Close releases backend resources.
	Close() error
}
