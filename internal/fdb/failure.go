package fdb

import (
	"fmt"
	"sync"
)

// FailureHandler is invoked for faults that cannot be reported through an
// ordinary error return. Context travels in the closure.
type FailureHandler func(code Code)

var failureRegistry struct {
	mu      sync.Mutex
	handler FailureHandler
}

// SetFailureHandler registers the process-wide failure handler, replacing
// any previous one. Register once at start-up before concurrent use begins.
func SetFailureHandler(h FailureHandler) {
	failureRegistry.mu.Lock()
	defer failureRegistry.mu.Unlock()
	failureRegistry.handler = h
}

// ClearFailureHandler removes the registered failure handler.
func ClearFailureHandler() {
	SetFailureHandler(nil)
}

func notifyFailure(code Code) {
	failureRegistry.mu.Lock()
	h := failureRegistry.handler
	failureRegistry.mu.Unlock()
	if h != nil {
		h(code)
	}
}

// guard converts a panic in a public operation into an UnknownException,
// notifying the failure handler first. Use as `defer guard("op", &err)`.
func guard(op string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	notifyFailure(UnknownException)
	*err = newError(UnknownException, op, fmt.Errorf("panic: %v", r))
}
