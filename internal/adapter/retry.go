// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package adapter

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"
)

// Retry bounds the repeat of transactions that lost arbitration.
type Retry struct {
	// Attempts includes the first; less than 2 never retries.
	Attempts int
	Min, Max time.Duration
	Factor   float64
}

var DefaultRetry = Retry{
	Attempts: 3,
	Min:      10 * time.Millisecond,
	Max:      time.Second,
	Factor:   2,
}

// XferRetry is Xfer, repeated after a backoff while the bus is busy with
// another master. Any other error is returned at once.
func (a *Adapter) XferRetry(r Retry, msgs []i2c.Message) (n int, err error) {
	b := &backoff.Backoff{
		Min:    r.Min,
		Max:    r.Max,
		Factor: r.Factor,
		Jitter: true,
	}
	for attempt := 1; ; attempt++ {
		n, err = a.Xfer(msgs)
		if !errors.Is(err, bdei2c.ErrBusy) || attempt >= r.Attempts {
			return
		}
		d := b.Duration()
		log.Print("debug", a, ": ", err, "; retry in ", d)
		time.Sleep(d)
	}
}
