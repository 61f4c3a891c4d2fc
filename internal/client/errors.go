// internal/client/errors.go
package client

import (
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every PreconditionError so callers can test
// with errors.Is.
var ErrPrecondition = errors.New("precondition failed")

// PreconditionError is a local rejection raised before any request is sent.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// TransportError means the request never completed (network down, server
// unreachable, context cancelled).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError means the server answered with a non-2xx status.
type RejectionError struct {
	Op     string
	Status int
	Body   string
}

func (e *RejectionError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: rejected with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.Status, e.Body)
}

// ProtocolError means a response body or push frame could not be understood.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ErrorKind classifies an error for the presentation layer.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindPrecondition
	KindTransport
	KindRejection
	KindProtocol
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	case KindRejection:
		return "rejection"
	case KindProtocol:
		return "protocol"
	}
	return "other"
}

// KindOf maps err onto the error taxonomy. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		pre *PreconditionError
		tr  *TransportError
		rej *RejectionError
		pro *ProtocolError
	)
	switch {
	case errors.As(err, &pre), errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.As(err, &rej):
		return KindRejection
	case errors.As(err, &pro):
		return KindProtocol
	case errors.As(err, &tr):
		return KindTransport
	}
	return KindOther
}
