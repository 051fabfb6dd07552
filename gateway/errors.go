// ABOUTME: Error taxonomy for record gateway operations
// ABOUTME: Every failure carries a kind, the operation, entity and record id
package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindTransport Kind = "transport"
	KindRemote    Kind = "remote"
	KindDecode    Kind = "decode"
	KindInvalid   Kind = "invalid"
)

// ErrNotFound matches any Error of KindNotFound via errors.Is.
var ErrNotFound = errors.New("record not found")

// Error is returned by every backend.
type Error struct {
	Kind    Kind
	Op      string
	Entity  string
	ID      int64
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ID != 0 {
		return fmt.Sprintf("%s %s %d: %s: %s", e.Op, e.Entity, e.ID, e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Entity, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// KindOf returns the kind of a gateway error, or "" for foreign errors.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// NotFound reports a missing record.
func NotFound(op, entity string, id int64) error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, ID: id, Message: "record not found"}
}

// Transport wraps a storage or network failure.
func Transport(op, entity string, id int64, err error) error {
	return &Error{Kind: KindTransport, Op: op, Entity: entity, ID: id, Err: err}
}

// Remote reports a failure message returned by the record store.
func Remote(op, entity string, id int64, msg string) error {
	return &Error{Kind: KindRemote, Op: op, Entity: entity, ID: id, Message: msg}
}

// Decode wraps a record that could not be mapped to the canonical shape.
func Decode(op, entity string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Entity: entity, Err: err}
}

// Invalid wraps an input the store refused before touching any record.
func Invalid(op, entity string, id int64, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Entity: entity, ID: id, Err: err}
}
