// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2cd

import (
	"errors"
	"sync"

	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/i2c"
)

var ErrNotRunning = errors.New("not running")

type XferArgs struct {
	Bus  int
	Msgs []i2c.Message
	// Retry transfers that lost arbitration.
	Retry bool
}

// XferReply has the messages with the data read into them. Transfer
// errors are returned here, rather than by the call, to keep their kind.
type XferReply struct {
	N    int
	Msgs []i2c.Message
	Err  string
	Kind string
}

// Error returns the transfer error; errors.Is matches its bdei2c kind.
func (r *XferReply) Error() error {
	if len(r.Err) == 0 {
		return nil
	}
	return &RemoteError{r.Err, bdei2c.KindByName[r.Kind]}
}

type RemoteError struct {
	Msg  string
	Kind error
}

func (e *RemoteError) Error() string { return e.Msg }
func (e *RemoteError) Unwrap() error { return e.Kind }

type BusInfo struct {
	Bus           int
	Unit          int
	Name          string
	Functionality i2c.FeatureFlag
	Stats         bdei2c.Stats
}

// Bdei2c is the rpc service.
type Bdei2c struct {
	mu sync.RWMutex
	c  *Command
}

func (s *Bdei2c) set(c *Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
}

func (s *Bdei2c) command() (*Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.c == nil {
		return nil, ErrNotRunning
	}
	return s.c, nil
}

func (s *Bdei2c) Xfer(args XferArgs, reply *XferReply) error {
	c, err := s.command()
	if err != nil {
		return err
	}
	a, err := c.reg.Get(args.Bus)
	if err != nil {
		return err
	}
	var n int
	if args.Retry {
		n, err = a.XferRetry(c.cfg.Retry, args.Msgs)
	} else {
		n, err = a.Xfer(args.Msgs)
	}
	reply.N = n
	reply.Msgs = args.Msgs
	if err != nil {
		reply.Err = err.Error()
		reply.Kind = bdei2c.KindName(err)
		c.muxReset(err)
	}
	return nil
}

func (s *Bdei2c) Buses(_ struct{}, reply *[]BusInfo) error {
	c, err := s.command()
	if err != nil {
		return err
	}
	buses := c.reg.Buses()
	info := make([]BusInfo, 0, len(buses))
	for _, a := range buses {
		info = append(info, BusInfo{
			Bus:           a.Bus,
			Unit:          a.Unit,
			Name:          a.Name,
			Functionality: a.Functionality(),
			Stats:         a.Stats(),
		})
	}
	*reply = info
	return nil
}
