// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2cd

import "github.com/platinasystems/bdei2c/internal/adapter"

var probe = adapter.Probe
