// Copyright 2024 The nvrhi Authors. All rights reserved.

// Package nvrhi defines a rendering hardware interface: one API for
// recording GPU work that multiple native graphics backends execute.
// It is designed so that platform-specific backends can be implemented
// in a mostly straightforward manner; the subpackages d3d12 and vulkan
// provide the two native implementations, and the validation package
// provides an optional layer that checks API usage before it reaches
// a backend.
//
// The central service of the interface is automatic resource-state
// tracking: command lists know the access/layout state of every buffer
// and every texture subresource they touch, and synthesize the minimal
// set of synchronization barriers when an operation requires a state
// change. See the tracking package for the engine shared by the
// backends.
package nvrhi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrNoDevice means that no suitable native device was provided
// or could be found.
var ErrNoDevice = errors.New("nvrhi: no suitable device")

// ErrNoHostMemory means that host memory could not be allocated.
var ErrNoHostMemory = errors.New("nvrhi: out of host memory")

// ErrNoDeviceMemory means that device memory could not be allocated.
var ErrNoDeviceMemory = errors.New("nvrhi: out of device memory")

// ErrInvalidState means that an object was used in a way that its
// current state does not allow.
var ErrInvalidState = errors.New("nvrhi: invalid state")

// ErrInvalidArgument means that a creation call received a descriptor
// that the backend cannot honor.
var ErrInvalidArgument = errors.New("nvrhi: invalid argument")

// ErrFatal means that the backend is in an unrecoverable state.
// Upon encountering such an error, the application must destroy
// everything that it created from the device.
var ErrFatal = errors.New("nvrhi: fatal error")

// GraphicsAPI identifies a native backend.
type GraphicsAPI int

// Backends.
const (
	APID3D12 GraphicsAPI = iota
	APIVulkan
)

// String returns the backend name.
func (a GraphicsAPI) String() string {
	switch a {
	case APID3D12:
		return "d3d12"
	case APIVulkan:
		return "vulkan"
	}
	return fmt.Sprintf("GraphicsAPI(%d)", int(a))
}

// Severity classifies a message reported through a MessageCallback.
type Severity int

// Message severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MessageCallback receives diagnostic messages from devices, command
// lists and the validation layer. Report must be synchronous, must not
// block and must not panic; it may be called from any recording thread.
//
// Usage errors are reported through this side channel and the offending
// call is skipped. No Go error is returned for them (see the package
// documentation of validation).
type MessageCallback interface {
	Report(severity Severity, message string)
}

// nopHandler is a slog.Handler that silently discards all records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	loggerPtr.Store(l)
}

// SetLogger configures the logger used by nvrhi and its subpackages.
// By default, nvrhi produces no log output. Pass nil to restore the
// default silent behavior.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the active logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// defaultMessageCallback routes messages to the package logger.
type defaultMessageCallback struct{}

// DefaultMessageCallback returns a MessageCallback that forwards
// messages to the package logger (see SetLogger).
func DefaultMessageCallback() MessageCallback {
	return defaultMessageCallback{}
}

func (defaultMessageCallback) Report(severity Severity, message string) {
	l := Logger()
	switch severity {
	case SeverityInfo:
		l.Info(message)
	case SeverityWarning:
		l.Warn(message)
	default:
		l.Error(message, "severity", severity.String())
	}
}
