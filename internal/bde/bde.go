// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package bde describes the registers and status codes of the I2C engine in
// Broadcom switch chips as seen through the BDE register window.
package bde

import "fmt"

// Register offsets from the start of the chip's register window.
const (
	Addr  = 0x120
	Data  = 0x124
	Ctrl  = 0x128
	Stat  = 0x12c // read
	CCR   = 0x12c // write
	XAddr = 0x130
	Reset = 0x13c

	Config     = 0x10c
	IrqStat    = 0x144
	IrqMask    = 0x148
	EndianSel  = 0x174
	RateAdjust = 0x1b4

	WindowSize = 0x200
)

// Ctrl bits
const (
	CtrlIEN  = 0x80 // interrupt enable
	CtrlENAB = 0x40 // bus enable
	CtrlSTA  = 0x20 // master mode start
	CtrlSTP  = 0x10 // master mode stop
	CtrlIFLG = 0x08 // interrupt flag
	CtrlAAK  = 0x04 // assert acknowledge
)

const (
	ConfigI2C = 1 << 11
	// IrqI2C is the I2C bit of both IrqStat and IrqMask.
	IrqI2C = 1 << 18

	// EndianBig is or'ed into EndianSel to select big-endian.
	EndianBig = 0x05050505

	// DefaultCCR divides the reference clock to 83333Hz.
	DefaultCCR = 2<<3 | 0
)

type Status uint8

const (
	StatusStart           Status = 0x08
	StatusRepeatedStart   Status = 0x10
	StatusAddrWriteAck    Status = 0x18
	StatusAddrWriteNack   Status = 0x20
	StatusDataWriteAck    Status = 0x28
	StatusDataWriteNack   Status = 0x30
	StatusLostArbitration Status = 0x38
	StatusAddrReadAck     Status = 0x40
	StatusAddrReadNack    Status = 0x48
	StatusDataReadAck     Status = 0x50
	StatusDataReadNack    Status = 0x58
	StatusSlaveWrite      Status = 0x68
	StatusGeneralCall     Status = 0x78
	StatusSlaveRead       Status = 0xb0
	StatusIdle            Status = 0xf8
)

var statusNames = map[Status]string{
	StatusStart:           "sent start",
	StatusRepeatedStart:   "sent repeated start",
	StatusAddrWriteAck:    "ack (write)",
	StatusAddrWriteNack:   "no ack (write)",
	StatusDataWriteAck:    "data ack",
	StatusDataWriteNack:   "data no ack",
	StatusLostArbitration: "lost arbitration",
	StatusAddrReadAck:     "ack (read)",
	StatusAddrReadNack:    "no ack (read)",
	StatusDataReadAck:     "received data, sent ack",
	StatusDataReadNack:    "received data, sent no ack",
	StatusSlaveWrite:      "lost arbitration, received slave addr, write",
	StatusGeneralCall:     "lost arbitration, received general-call addr",
	StatusSlaveRead:       "lost arbitration, received slave addr, read",
	StatusIdle:            "idle",
}

func (s Status) String() string {
	if name, found := statusNames[s]; found {
		return fmt.Sprintf("%#02x %s", uint8(s), name)
	}
	return fmt.Sprintf("%#02x", uint8(s))
}
