// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// +build linux

package irq

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/platinasystems/log"
)

// UIO feeds a Line from the events of a /dev/uioN device.
type UIO struct {
	Path string
	f    *os.File
	line *Line
	done chan struct{}
}

func OpenUIO(minor int, line *Line) (*UIO, error) {
	path := fmt.Sprintf("/dev/uio%d", minor)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	u := &UIO{
		Path: path,
		f:    f,
		line: line,
		done: make(chan struct{}),
	}
	go u.loop()
	return u, nil
}

func (u *UIO) Close() error {
	err := u.f.Close()
	<-u.done
	return err
}

func (u *UIO) loop() {
	defer close(u.done)
	irqcontrol := u.unmask()
	for {
		var b [4]byte
		if _, err := u.f.Read(b[:]); err != nil {
			if !errors.Is(err, os.ErrClosed) {
				log.Print("warn", u.Path, ": ", err)
			}
			return
		}
		u.line.Interrupt()
		if irqcontrol {
			irqcontrol = u.unmask()
		}
	}
}

// unmask re-enables the interrupt; drivers without irqcontrol reject
// the write and are left alone after that.
func (u *UIO) unmask() bool {
	one := int32(1)
	_, err := u.f.Write((*[4]byte)(unsafe.Pointer(&one))[:])
	return err == nil
}
