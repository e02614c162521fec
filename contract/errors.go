/*
Package contract holds the error taxonomy shared by all packages of asynclist.

Concrete errors of the individual packages wrap one of the sentinels below,
so clients may test the class of an error with errors.Is:

    if errors.Is(err, contract.ErrProtocolViolation) { … }

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package contract

import (
	"context"
	"errors"
)

var (
	// ErrProtocolViolation is the class of errors caused by calling an operation
	// out of protocol, e.g. opening a second edit transaction or attaching an
	// unplaced child layout. Fatal to the calling transaction, never retried.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrStaleComputation marks a result computed for an item identity which
	// has been deleted, reloaded or evicted in the meantime.
	// Such results are discarded and never reach a host.
	ErrStaleComputation = errors.New("stale computation")
	// ErrHostContractViolation marks degraded functionality caused by a host not
	// honouring its side of a protocol, e.g. never completing a batch fetch.
	ErrHostContractViolation = errors.New("host contract violation")
	// ErrMeasurementFailed wraps errors (and recovered panics) of a layout
	// computation on a worker.
	ErrMeasurementFailed = errors.New("measurement failed")
)

// Class is a coarse classification of errors, used for tracing and metrics.
type Class string

const (
	ClassUnknown  Class = "unknown"
	ClassProtocol Class = "protocol"
	ClassStale    Class = "stale"
	ClassHost     Class = "host"
	ClassMeasure  Class = "measure"
	ClassCancel   Class = "cancel"
)

// Classify maps an error onto its class. It relies on sentinel errors only.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return ClassCancel
	case errors.Is(err, ErrProtocolViolation):
		return ClassProtocol
	case errors.Is(err, ErrStaleComputation):
		return ClassStale
	case errors.Is(err, ErrHostContractViolation):
		return ClassHost
	case errors.Is(err, ErrMeasurementFailed):
		return ClassMeasure
	}
	return ClassUnknown
}
