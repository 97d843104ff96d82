package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies queue adapter failures. Broker errors are transport
// or backend problems the caller can degrade around; task errors are
// problems with the jobs themselves; everything else is Other.
type ErrorKind string

const (
	ErrorKindBroker ErrorKind = "broker"
	ErrorKindTask   ErrorKind = "task"
	ErrorKindOther  ErrorKind = "other"
)

// ErrGroupNotFound is returned when a task group id is unknown to the
// result backend, typically because its keys expired.
var ErrGroupNotFound = errors.New("task group not found")

// AdapterError is the uniform error surface of the task queue adapter,
// regardless of which backend produced the failure.
type AdapterError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("queue adapter %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsBrokerError reports whether err is (or wraps) a broker-class adapter
// error.
func IsBrokerError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Kind == ErrorKindBroker
}
