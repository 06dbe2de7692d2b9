// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/platinasystems/bdei2c/internal/bde"
)

// Error kinds; test with errors.Is.
var (
	// The addressed device didn't respond; stop has been sent.
	ErrNoAck = errors.New("no ack")
	// Lost arbitration to another master; retry after backoff.
	ErrBusy = errors.New("lost arbitration")
	// Unexpected status; the engine has been reset.
	ErrProtocol = errors.New("protocol error")
	// No completion interrupt; the engine has been reset.
	ErrTimeout = errors.New("timeout")
	// Rejected before touching the hardware.
	ErrInvalidArgument = errors.New("invalid argument")
)

var Kinds = []error{
	ErrNoAck,
	ErrBusy,
	ErrProtocol,
	ErrTimeout,
	ErrInvalidArgument,
}

var KindByName = map[string]error{
	"noack":    ErrNoAck,
	"busy":     ErrBusy,
	"protocol": ErrProtocol,
	"timeout":  ErrTimeout,
	"invalid":  ErrInvalidArgument,
}

// Error describes a failed phase of a transfer.
type Error struct {
	Unit   int
	Op     string
	Addr   uint16
	Status bde.Status
	Err    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("bde i2c %d: %s %#02x", e.Unit, e.Op, e.Addr)
	if e.Status != 0 {
		s += fmt.Sprint(": STAT ", e.Status)
	}
	return s + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the error kind of err or nil if it has none.
func Kind(err error) error {
	for _, kind := range Kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is the inverse of KindByName; it's empty for errors without a
// kind.
func KindName(err error) string {
	kind := Kind(err)
	for name, v := range KindByName {
		if v == kind {
			return name
		}
	}
	return ""
}

// Errno maps an error kind to the errno of the Linux i2c drivers.
func Errno(err error) syscall.Errno {
	switch Kind(err) {
	case ErrNoAck:
		return syscall.ENXIO
	case ErrBusy:
		return syscall.EAGAIN
	case ErrProtocol:
		return syscall.EIO
	case ErrTimeout:
		return syscall.EBUSY
	case ErrInvalidArgument:
		return syscall.EINVAL
	}
	if err == nil {
		return 0
	}
	return syscall.EIO
}
