// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// +build !linux

package bdei2cd

import (
	"errors"

	"github.com/platinasystems/bdei2c/internal/adapter"
	"github.com/platinasystems/bdei2c/internal/bdei2c"
)

func probe(*adapter.Registry, bdei2c.Params) error {
	return errors.New("switch chips are only probed on linux; try -sim")
}
